package main

import (
	"github.com/ablaqll/pmpk-website-sub000/shared/content"
	"github.com/ablaqll/pmpk-website-sub000/shared/rpc"
)

type contentParams struct {
	Source     string `json:"source" binding:"omitempty,oneof=store cms"`
	Entity     string `json:"entity" binding:"required"`
	ClientSlug string `json:"clientSlug" binding:"omitempty,slug"`
	Category   string `json:"category"`
	Department string `json:"department"`
	Kind       string `json:"kind"`
	Limit      int    `json:"limit" binding:"omitempty,min=1,max=100"`
}

func (s *server) registerSourceProcedures() {
	s.rpc.Query("content.get", func(call *rpc.Call) (any, error) {
		p, err := rpc.Bind[contentParams](call)
		if err != nil {
			return nil, err
		}
		src, err := s.sources.Get(p.Source)
		if err != nil {
			return nil, err
		}
		filters := (&listParams{Category: p.Category, Department: p.Department, Kind: p.Kind}).query().Filters
		return src.ListPublished(call.Ctx, content.Request{
			Entity:     p.Entity,
			ClientSlug: p.ClientSlug,
			Filters:    filters,
			Limit:      p.Limit,
		})
	})

	s.rpc.Query("content.entities", func(call *rpc.Call) (any, error) {
		return s.store.Entities(), nil
	})
}
