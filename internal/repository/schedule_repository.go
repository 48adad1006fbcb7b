package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const scheduleSelect = `SELECT s.id, s.course_id, s.day_of_week, s.start_time, s.end_time, s.room, s.created_at, c.name AS course_name
        FROM class_schedules s JOIN courses c ON c.id = s.course_id`

// ScheduleRepository stores weekly class meetings.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListByCourse returns a course's schedule in weekday then start time order.
func (r *ScheduleRepository) ListByCourse(ctx context.Context, courseID string) ([]models.ClassSchedule, error) {
	query := scheduleSelect + ` WHERE s.course_id = $1
        ORDER BY array_position(ARRAY['MONDAY','TUESDAY','WEDNESDAY','THURSDAY','FRIDAY','SATURDAY','SUNDAY']::varchar[], s.day_of_week), s.start_time`
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, courseID); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

// FindByID returns a schedule entry.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	var schedule models.ClassSchedule
	if err := r.db.GetContext(ctx, &schedule, scheduleSelect+" WHERE s.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return &schedule, nil
}

// Create inserts a schedule entry.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	schedule.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO class_schedules (id, course_id, day_of_week, start_time, end_time, room, created_at)
        VALUES (:id, :course_id, :day_of_week, :start_time, :end_time, :room, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", classify(err))
	}
	return nil
}

// Delete removes a schedule entry.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return expectAffected(res)
}
