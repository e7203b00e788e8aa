//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package rest exposes the query service over HTTP. Filters, orders and
// paging are bound from query parameters:
//
//	GET /api/DataElement?filter=name:like:ANC&filter=code:!null&order=created:desc&rootJunction=OR&page=2&pageSize=20
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-query-go/engine"
	"trpc.group/trpc-go/trpc-query-go/log"
	"trpc.group/trpc-go/trpc-query-go/query"
	"trpc.group/trpc-go/trpc-query-go/schema"
)

// Query parameter names.
const (
	paramFilter       = "filter"
	paramOrder        = "order"
	paramRootJunction = "rootJunction"
	paramPage         = "page"
	paramPageSize     = "pageSize"
	paramPaging       = "paging"
)

const defaultPageSize = 50

// Server serves queries over HTTP.
type Server struct {
	svc    *engine.Service
	router *mux.Router

	defaultPageSize int
	maxPageSize     int
}

// Option configures the Server instance.
type Option func(*Server)

// WithDefaultPageSize sets the page size used when a request names none.
func WithDefaultPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.defaultPageSize = n
		}
	}
}

// WithMaxPageSize caps the page size a request may ask for. Zero disables
// the cap.
func WithMaxPageSize(n int) Option {
	return func(s *Server) { s.maxPageSize = n }
}

// New creates a server over svc.
func New(svc *engine.Service, opts ...Option) *Server {
	s := &Server{
		svc:             svc,
		router:          mux.NewRouter(),
		defaultPageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/api/schemas", s.handleSchemas).Methods(http.MethodGet)
	s.router.HandleFunc("/api/{type}", s.handleQuery).Methods(http.MethodGet)
	s.router.HandleFunc("/api/{type}/count", s.handleCount).Methods(http.MethodGet)
}

// Pager describes the returned page.
type Pager struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	Total     int `json:"total"`
	PageCount int `json:"pageCount"`
}

// Page is the response of a query.
type Page struct {
	Pager Pager            `json:"pager"`
	Items []map[string]any `json:"items"`
}

// ErrorBody is the response of a failed request.
type ErrorBody struct {
	HTTPStatusCode int    `json:"httpStatusCode"`
	Message        string `json:"message"`
}

// SchemaInfo describes a queryable type.
type SchemaInfo struct {
	Name       string         `json:"name"`
	Properties []PropertyInfo `json:"properties"`
}

// PropertyInfo describes a queryable property.
type PropertyInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Target   string `json:"target,omitempty"`
	Nullable bool   `json:"nullable,omitempty"`
}

// errBadParam marks malformed non-filter parameters.
var errBadParam = errors.New("bad request parameter")

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log.Debugf("handleQuery called: %s", r.URL.String())
	req, paged, err := s.bind(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.svc.QueryTokens(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, NewPage(s.svc.Registry(), res, req, paged))
}

// NewPage renders a query result. An unpaged result is a single page holding
// every match.
func NewPage(r *schema.Registry, res *engine.Result, req engine.TokenRequest, paged bool) Page {
	pager := Pager{Page: 1, PageSize: len(res.Items), Total: res.Total, PageCount: 1}
	if paged && req.PageSize > 0 {
		pager.Page, pager.PageSize = req.Page, req.PageSize
		pager.PageCount = res.Total / req.PageSize
		if res.Total%req.PageSize != 0 {
			pager.PageCount++
		}
	}
	items := make([]map[string]any, 0, len(res.Items))
	for _, obj := range res.Items {
		items = append(items, view(r, obj))
	}
	return Page{Pager: pager, Items: items}
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	log.Debugf("handleCount called: %s", r.URL.String())
	req, _, err := s.bind(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	req.Page, req.PageSize = 0, 0
	q, err := s.svc.Build(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	n, err := s.svc.Count(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	var out []SchemaInfo
	for _, sc := range s.svc.Registry().Schemas() {
		info := SchemaInfo{Name: sc.Name}
		for _, p := range sc.Properties() {
			info.Properties = append(info.Properties, PropertyInfo{
				Name: p.Name, Kind: p.Kind.String(), Target: p.Target, Nullable: p.Nullable,
			})
		}
		out = append(out, info)
	}
	s.writeJSON(w, http.StatusOK, out)
}

// bind reads the token request from the URL. paged is false when the
// request disabled paging.
func (s *Server) bind(r *http.Request) (req engine.TokenRequest, paged bool, err error) {
	v := r.URL.Query()
	req.Type = mux.Vars(r)["type"]
	req.Filters = v[paramFilter]
	for _, o := range v[paramOrder] {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				req.Orders = append(req.Orders, part)
			}
		}
	}

	req.RootJunction = query.And
	if raw := v.Get(paramRootJunction); raw != "" {
		kind, ok := query.ParseJunctionKind(raw)
		if !ok {
			return req, false, fmt.Errorf("%w: %s=%q", errBadParam, paramRootJunction, raw)
		}
		req.RootJunction = kind
	}

	if raw := v.Get(paramPaging); raw != "" {
		on, perr := strconv.ParseBool(raw)
		if perr != nil {
			return req, false, fmt.Errorf("%w: %s=%q", errBadParam, paramPaging, raw)
		}
		if !on {
			return req, false, nil
		}
	}
	req.Page, req.PageSize = 1, s.defaultPageSize
	if req.Page, err = intParam(v.Get(paramPage), req.Page); err != nil {
		return req, false, err
	}
	if req.PageSize, err = intParam(v.Get(paramPageSize), req.PageSize); err != nil {
		return req, false, err
	}
	if req.Page < 1 || req.PageSize < 1 {
		return req, false, fmt.Errorf("%w: page and pageSize must be positive", errBadParam)
	}
	if s.maxPageSize > 0 && req.PageSize > s.maxPageSize {
		req.PageSize = s.maxPageSize
	}
	return req, true, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errBadParam, raw)
	}
	return n, nil
}

// statusOf maps an error onto an HTTP status: caller mistakes are 4xx,
// evaluation and store failures 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, schema.ErrUnknownType):
		return http.StatusNotFound
	case errors.Is(err, query.ErrParse), errors.Is(err, errBadParam):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("rest: %v", err)
	}
	s.writeJSON(w, status, ErrorBody{HTTPStatusCode: status, Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
