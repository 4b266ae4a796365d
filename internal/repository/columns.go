package repository

const sessionColumns = `id, class_id, session_date, end_date, start_time, end_time, capacity, enrolled_count,
       instructor_id, status, deleted_at, archived_into, created_at, updated_at`

const historicalSessionColumns = `id, original_session_id, class_id, session_date, end_date, start_time, end_time,
       capacity, enrolled_count, instructor_id, status, archived_at, archived_reason`

const enrollmentColumns = `id, user_id, class_id, session_id, payment_status, enrollment_status, enrolled_at,
       reviewed_by, reviewed_at, review_note`

const historicalEnrollmentColumns = `id, original_enrollment_id, historical_session_id, user_id, class_id, session_id,
       payment_status, enrollment_status, enrolled_at, reviewed_by, reviewed_at, review_note, archived_at, archived_reason`
