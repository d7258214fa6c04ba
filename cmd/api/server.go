package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gdg-paro/eventsync/filter"
	"github.com/gdg-paro/eventsync/model"
	"github.com/gdg-paro/eventsync/postgres"
	"github.com/gdg-paro/eventsync/recommender"
)

type Server struct {
	events      *postgres.EventService
	recommender *recommender.Recommender
	logger      *zap.Logger
}

type CreateEventInput struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description" binding:"required"`
	Date         string   `json:"date" binding:"required"`
	Time         string   `json:"time" binding:"required"`
	Location     string   `json:"location" binding:"required"`
	Department   string   `json:"department" binding:"required"`
	Club         string   `json:"club" binding:"required"`
	Tags         []string `json:"tags"`
	MaxAttendees *int     `json:"maxAttendees"`
}

func (s *Server) createEvent(c *gin.Context) {
	var input CreateEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := &model.Event{
		Title:        input.Title,
		Description:  input.Description,
		Date:         input.Date,
		Time:         input.Time,
		Location:     input.Location,
		Department:   input.Department,
		Club:         input.Club,
		Tags:         input.Tags,
		Attendees:    0,
		MaxAttendees: input.MaxAttendees,
	}

	if err := s.events.CreateEvent(c.Request.Context(), event); err != nil {
		s.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"event": event,
	}})
}

func (s *Server) listEvents(c *gin.Context) {
	events, err := s.events.FindEvents(c.Request.Context())
	if err != nil {
		s.errorResponse(c, err)
		return
	}

	criteria := filter.Criteria{
		SearchTerm: c.Query("search"),
		Department: c.Query("department"),
		Date:       c.Query("date"),
		Types:      c.QueryArray("type"),
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"events": filter.Apply(events, criteria),
	}})
}

func (s *Server) findEvent(c *gin.Context) {
	event, err := s.events.FindEventByID(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		s.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"event": event,
	}})
}

func (s *Server) updateEvent(c *gin.Context) {
	var upd model.EventUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := s.events.UpdateEvent(c.Request.Context(), c.Param("eventId"), upd)
	if err != nil {
		s.errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"event": event,
	}})
}

func (s *Server) deleteEvent(c *gin.Context) {
	if err := s.events.DeleteEvent(c.Request.Context(), c.Param("eventId")); err != nil {
		s.errorResponse(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type RecommendInput struct {
	Interests string `json:"interests" binding:"required"`

	// SessionID identifies the requesting client so only that client's own
	// newer requests can supersede this one. Optional; without it the
	// request never participates in supersede tracking.
	SessionID string `json:"sessionId"`
}

func (s *Server) recommend(c *gin.Context) {
	var input RecommendInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recommendations, err := s.recommender.RequestRecommendations(c.Request.Context(), input.SessionID, input.Interests)
	if errors.Is(err, recommender.ErrSuperseded) {
		// A newer request is in flight; its response is the one to display.
		recommendations = []model.Recommendation{}
	} else if err != nil {
		s.errorResponse(c, err)
		return
	}

	if recommendations == nil {
		recommendations = []model.Recommendation{}
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"recommendations": recommendations,
	}})
}

// errorResponse maps domain errors onto status codes. Validation problems
// come back as per-field messages; anything unexpected is logged and hidden
// behind a generic 500.
func (s *Server) errorResponse(c *gin.Context, err error) {
	var fields model.FieldErrors
	switch {
	case errors.As(err, &fields):
		c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
	case errors.Is(err, postgres.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
	default:
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
