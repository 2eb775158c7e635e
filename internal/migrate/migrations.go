package migrate

// Migration is one versioned schema change. Versions are contiguous and
// start at 1; a schema never has version N applied without N-1.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// All returns the full ordered migration history applied to every tenant
// schema. Statements are unqualified: the executor sets search_path to
// the target schema before running them.
func All() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_users",
			SQL: `CREATE TABLE users (
				id UUID PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				name TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'staff',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
		},
		{
			Version: 2,
			Name:    "create_academic_years",
			SQL: `CREATE TABLE academic_years (
				id UUID PRIMARY KEY,
				label TEXT NOT NULL UNIQUE,
				starts_on DATE NOT NULL,
				ends_on DATE NOT NULL,
				is_current BOOLEAN NOT NULL DEFAULT false
			)`,
		},
		{
			Version: 3,
			Name:    "create_students",
			SQL: `CREATE TABLE students (
				id UUID PRIMARY KEY,
				admission_no TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				class_label TEXT,
				guardian_phone TEXT,
				enrolled_at DATE NOT NULL DEFAULT CURRENT_DATE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
		},
		{
			Version: 4,
			Name:    "create_fee_ledger",
			SQL: `CREATE TABLE fee_ledger (
				id UUID PRIMARY KEY,
				student_id UUID NOT NULL REFERENCES students(id),
				amount_paise BIGINT NOT NULL,
				kind TEXT NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);
			CREATE INDEX fee_ledger_student_idx ON fee_ledger (student_id)`,
		},
		{
			Version: 5,
			Name:    "create_site_settings",
			SQL: `CREATE TABLE site_settings (
				key TEXT PRIMARY KEY,
				value JSONB NOT NULL DEFAULT '{}'::jsonb,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
		},
		{
			Version: 6,
			Name:    "users_role_check",
			SQL: `ALTER TABLE users
				ADD CONSTRAINT users_role_check
				CHECK (role IN ('admin', 'staff', 'student'))`,
		},
	}
}

// Validate checks that migrations are ordered, contiguous, and start at 1.
func Validate(migrations []Migration) bool {
	for i, m := range migrations {
		if m.Version != i+1 {
			return false
		}
	}
	return true
}
