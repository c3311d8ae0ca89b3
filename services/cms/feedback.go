package main

import (
	"strings"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/models"
	"github.com/ablaqll/pmpk-website-sub000/shared/repository"
	"github.com/ablaqll/pmpk-website-sub000/shared/rpc"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type submitFeedbackParams struct {
	ClientID    *uuid.UUID `json:"clientId"`
	ClientSlug  string     `json:"clientSlug" binding:"omitempty,slug"`
	AuthorName  string     `json:"authorName" binding:"required,max=255"`
	AuthorEmail string     `json:"authorEmail" binding:"omitempty,email"`
	AuthorPhone string     `json:"authorPhone" binding:"omitempty,max=50"`
	Locale      string     `json:"locale" binding:"omitempty,oneof=ru kk en"`
	Category    string     `json:"category" binding:"omitempty,max=100"`
	Question    string     `json:"question" binding:"required,max=5000"`
}

type answerFeedbackParams struct {
	ID      uuid.UUID        `json:"id" binding:"required"`
	Answer  models.Localized `json:"answer"`
	Publish *bool            `json:"publish"`
}

func (s *server) registerFeedbackProcedures() {
	repo := repository.NewScoped[models.Feedback](s.db, repository.FeedbackSchema, s.publisher)
	registerContent[models.FeedbackPatch](s, repo, models.Feedback.PublicView)

	// Submissions from the public form are always stored unpublished
	s.rpc.Mutation("feedback.submit", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[submitFeedbackParams](call)
		if err != nil {
			return nil, err
		}
		clientID, err := s.resolver.ResolveID(call.Ctx, p.ClientID, p.ClientSlug)
		if err != nil {
			return nil, err
		}

		locale := p.Locale
		if locale == "" {
			locale = "ru"
		}
		item := &models.Feedback{
			ContentBase: models.ContentBase{ClientID: clientID},
			AuthorName:  strings.TrimSpace(p.AuthorName),
			AuthorEmail: strings.ToLower(strings.TrimSpace(p.AuthorEmail)),
			AuthorPhone: strings.TrimSpace(p.AuthorPhone),
			Locale:      locale,
			Category:    p.Category,
			Question:    strings.TrimSpace(p.Question),
			IsPublished: false,
		}
		if err := repo.Insert(call.Ctx, item); err != nil {
			return nil, err
		}

		logrus.WithFields(logrus.Fields{"client_id": clientID, "feedback_id": item.ID}).Info("Feedback submitted")
		return map[string]any{"id": item.ID, "success": true}, nil
	})

	s.rpc.ProtectedMutation("feedback.answer", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[answerFeedbackParams](call)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		answeredBy := call.Caller.ID
		return repo.Update(call.Ctx, call.Caller, p.ID, &models.FeedbackAnswer{
			Answer:       &p.Answer,
			AnsweredByID: &answeredBy,
			AnsweredAt:   &now,
			IsPublished:  p.Publish,
		})
	})
}
