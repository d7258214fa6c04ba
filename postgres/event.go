package postgres

import (
	"context"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gdg-paro/eventsync/model"
	"github.com/gdg-paro/eventsync/rabbitmq"
	eventRedis "github.com/gdg-paro/eventsync/redis"
)

// ErrEventNotFound is returned when no event exists for the given id.
var ErrEventNotFound = errors.New("event not found")

const eventColumns = `id, title, description, date, time, location, department, club, tags, attendees, max_attendees, created_at, updated_at`

// EventService is the event repository. It owns input validation, id and
// timestamp assignment, the read-through list cache, and lifecycle message
// publishing. Cache and publisher failures are logged but never fail the
// repository call itself.
type EventService struct {
	DB              *DB
	EventsPublisher *rabbitmq.Producer
	Validator       *validator.Validate
	Cache           *eventRedis.EventListStorage
	Logger          *zap.Logger
}

// CreateEvent validates the event, assigns its id and timestamps, and
// inserts it. Validation failures are returned as model.FieldErrors before
// anything is written.
func (s *EventService) CreateEvent(ctx context.Context, event *model.Event) error {
	if err := s.validateNewEvent(event); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	prepareForInsert(event, tx.now)

	_, err = tx.Exec(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
		event.ID,
		event.Title,
		event.Description,
		event.Date,
		event.Time,
		event.Location,
		event.Department,
		event.Club,
		event.Tags,
		event.Attendees,
		event.MaxAttendees,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "inserting event")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "committing event insert")
	}

	s.invalidateCache(ctx)
	s.publish("event.created", event)

	return nil
}

// FindEvents returns the full event corpus, oldest first. Reads go through
// the list cache when one is configured.
func (s *EventService) FindEvents(ctx context.Context) ([]*model.Event, error) {
	if s.Cache != nil {
		if events, err := s.Cache.GetAll(ctx); err != nil {
			if !errors.Is(err, eventRedis.ErrNotFound) {
				s.Logger.Error("error reading event list from cache", zap.Error(err))
			}
		} else {
			return events, nil
		}
	}

	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event := &model.Event{}
		if err := scanEvent(rows, event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "reading event rows")
	}

	if s.Cache != nil {
		if err := s.Cache.SetAll(ctx, events); err != nil {
			s.Logger.Error("error caching event list", zap.Error(err))
		}
	}

	return events, nil
}

func (s *EventService) FindEventByID(ctx context.Context, id string) (*model.Event, error) {
	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	return findEventByID(ctx, tx, id)
}

// UpdateEvent merges the non-nil fields of upd into the stored event and
// refreshes updated_at. created_at is never touched.
func (s *EventService) UpdateEvent(ctx context.Context, id string, upd model.EventUpdate) (*model.Event, error) {
	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := findEventByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	applyUpdate(event, upd, tx.now)

	// The merged record must still be a valid event.
	if err := s.fieldErrors(event); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
			UPDATE events
			SET title = $1, description = $2, date = $3, time = $4, location = $5,
				department = $6, club = $7, tags = $8, attendees = $9,
				max_attendees = $10, updated_at = $11
			WHERE id = $12
		`,
		event.Title,
		event.Description,
		event.Date,
		event.Time,
		event.Location,
		event.Department,
		event.Club,
		event.Tags,
		event.Attendees,
		event.MaxAttendees,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "updating event")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "committing event update")
	}

	s.invalidateCache(ctx)
	s.publish("event.updated", event)

	return event, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if ct.RowsAffected() == 0 {
		return ErrEventNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "committing event delete")
	}

	s.invalidateCache(ctx)
	s.publish("event.deleted", map[string]string{"id": id})

	return nil
}

// prepareForInsert assigns the repository-owned fields of a new event.
// User-supplied fields are untouched; an omitted attendee count stays 0.
func prepareForInsert(event *model.Event, now time.Time) {
	event.ID = uuid.NewString()
	event.CreatedAt = now
	event.UpdatedAt = now
}

// applyUpdate merges the partial update and refreshes updated_at.
// created_at is never touched.
func applyUpdate(event *model.Event, upd model.EventUpdate, now time.Time) {
	upd.Apply(event)
	event.UpdatedAt = now
}

func findEventByID(ctx context.Context, tx *Tx, id string) (*model.Event, error) {
	event := &model.Event{}

	row := tx.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = $1
	`, id)

	if err := scanEvent(row, event); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	return event, nil
}

func scanEvent(row pgx.Row, event *model.Event) error {
	return row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Time,
		&event.Location,
		&event.Department,
		&event.Club,
		&event.Tags,
		&event.Attendees,
		&event.MaxAttendees,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
}

// validateNewEvent applies the struct rules plus the creation-only rule that
// the event date must not be in the past.
func (s *EventService) validateNewEvent(event *model.Event) error {
	if err := s.fieldErrors(event); err != nil {
		return err
	}

	date, err := time.ParseInLocation(model.DateLayout, event.Date, time.Local)
	if err != nil {
		// Unreachable when the datetime tag passed; kept as a guard.
		return model.FieldErrors{"date": "must be a date in YYYY-MM-DD format"}
	}

	now := s.DB.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if date.Before(today) {
		return model.FieldErrors{"date": "event date cannot be in the past"}
	}

	return nil
}

func (s *EventService) fieldErrors(event *model.Event) error {
	err := s.Validator.Struct(event)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := model.FieldErrors{}
	for _, fe := range validationErrs {
		fields[jsonFieldName(fe.Field())] = validationMessage(fe)
	}
	return fields
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}

func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	runes := []rune(field)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func (s *EventService) invalidateCache(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		s.Logger.Error("error invalidating event list cache", zap.Error(err))
	}
}

func (s *EventService) publish(routingKey string, data interface{}) {
	if s.EventsPublisher == nil {
		return
	}
	if err := s.EventsPublisher.Publish(routingKey, data); err != nil {
		s.Logger.Error("error publishing event message", zap.String("routingKey", routingKey), zap.Error(err))
	}
}
