// internal/store/migrations.go
//
// MySQL schema.  Statements are idempotent and run in order by
// database.Migrate when `database.migrate` is set.

package store

// Migrations returns the schema statements.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS registrations (
			registry_key         VARCHAR(64)  NOT NULL,
			registry_product     VARCHAR(191) NOT NULL,
			registry_title       VARCHAR(255) NOT NULL DEFAULT '',
			registry_description TEXT         NOT NULL,
			registry_version     VARCHAR(64)  NOT NULL DEFAULT '',
			registry_license     VARCHAR(16)  NOT NULL DEFAULT '',
			registry_count       INT          NOT NULL DEFAULT 0,
			registry_status      VARCHAR(16)  NOT NULL,
			registry_effective   DATE         NULL,
			registry_expires     DATE         NULL,
			registry_name        VARCHAR(255) NOT NULL DEFAULT '',
			registry_email       VARCHAR(191) NOT NULL,
			registry_company     VARCHAR(255) NOT NULL DEFAULT '',
			registry_address     TEXT         NOT NULL,
			registry_phone       VARCHAR(64)  NOT NULL DEFAULT '',
			registry_variations  JSON         NOT NULL,
			registry_options     JSON         NOT NULL,
			registry_domains     JSON         NOT NULL,
			registry_sites       JSON         NOT NULL,
			registry_transid     VARCHAR(255) NOT NULL DEFAULT '',
			registry_paydue      VARCHAR(32)  NOT NULL DEFAULT '',
			registry_payamount   VARCHAR(32)  NOT NULL DEFAULT '',
			registry_paydate     DATE         NULL,
			registry_payid       VARCHAR(255) NOT NULL DEFAULT '',
			registry_nextpay     DATE         NULL,
			registry_timezone    VARCHAR(64)  NOT NULL DEFAULT '',
			registry_locale      VARCHAR(32)  NOT NULL DEFAULT '',
			registry_autoupdate  BOOLEAN      NOT NULL DEFAULT FALSE,
			prior_status         VARCHAR(16)  NOT NULL DEFAULT '',
			registry_refreshed   DATETIME     NULL,
			registry_extras      JSON         NOT NULL,
			created_at           DATETIME(6)  NOT NULL,
			updated_at           DATETIME(6)  NOT NULL,
			PRIMARY KEY (registry_key),
			KEY idx_email_product (registry_email, registry_product, updated_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS registration_notes (
			id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			registry_key VARCHAR(64)     NOT NULL,
			note         TEXT            NOT NULL,
			created_at   DATETIME(6)     NOT NULL,
			PRIMARY KEY (id),
			KEY idx_key (registry_key, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
}
