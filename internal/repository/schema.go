package repository

// Schema is the reference DDL for the four lifecycle tables.
const Schema = `
CREATE TABLE IF NOT EXISTS historical_sessions (
	id                  TEXT PRIMARY KEY,
	original_session_id TEXT NOT NULL UNIQUE,
	class_id            TEXT NOT NULL,
	session_date        DATE NOT NULL,
	end_date            DATE,
	start_time          TIME,
	end_time            TIME,
	capacity            INTEGER NOT NULL DEFAULT 0,
	enrolled_count      INTEGER NOT NULL DEFAULT 0,
	instructor_id       TEXT,
	status              TEXT NOT NULL,
	archived_at         TIMESTAMPTZ NOT NULL,
	archived_reason     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	class_id       TEXT NOT NULL,
	session_date   DATE NOT NULL,
	end_date       DATE,
	start_time     TIME,
	end_time       TIME,
	capacity       INTEGER NOT NULL DEFAULT 0,
	enrolled_count INTEGER NOT NULL DEFAULT 0,
	instructor_id  TEXT,
	status         TEXT NOT NULL DEFAULT 'scheduled',
	deleted_at     TIMESTAMPTZ,
	archived_into  TEXT REFERENCES historical_sessions (id),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS enrollments (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	class_id          TEXT NOT NULL,
	session_id        TEXT NOT NULL REFERENCES sessions (id),
	payment_status    TEXT NOT NULL DEFAULT 'unpaid',
	enrollment_status TEXT NOT NULL DEFAULT 'pending',
	enrolled_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	reviewed_by       TEXT,
	reviewed_at       TIMESTAMPTZ,
	review_note       TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS enrollments_user_session_key ON enrollments (user_id, session_id);

CREATE TABLE IF NOT EXISTS historical_enrollments (
	id                     TEXT PRIMARY KEY,
	original_enrollment_id TEXT,
	historical_session_id  TEXT NOT NULL REFERENCES historical_sessions (id),
	user_id                TEXT NOT NULL,
	class_id               TEXT NOT NULL,
	session_id             TEXT NOT NULL,
	payment_status         TEXT NOT NULL,
	enrollment_status      TEXT NOT NULL,
	enrolled_at            TIMESTAMPTZ NOT NULL,
	reviewed_by            TEXT,
	reviewed_at            TIMESTAMPTZ,
	review_note            TEXT,
	archived_at            TIMESTAMPTZ NOT NULL,
	archived_reason        TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS historical_enrollments_original_key
	ON historical_enrollments (original_enrollment_id) WHERE original_enrollment_id IS NOT NULL;
`
