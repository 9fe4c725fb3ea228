package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"fleetroute/internal/buildinfo"
	"fleetroute/internal/export"
	"fleetroute/internal/metrics"
	"fleetroute/internal/model"
	"fleetroute/internal/opt"
	"fleetroute/internal/orders"
	"fleetroute/internal/plan"
	"fleetroute/internal/predict"
	"fleetroute/internal/store"
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "not ready", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Current())
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.store.ListStores(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
}

func (s *Server) handleStoreMetrics(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetStore(r.Context(), id); err != nil {
		s.writeStoreErr(w, err)
		return
	}
	var recent []opt.PlanMetrics
	if s.solved != nil {
		recent = s.solved.ForStore(id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"storeId": id, "solverRuns": recent})
}

func (s *Server) handleCreateOrders(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Orders []model.Order `json:"orders"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if len(body.Orders) == 0 {
		writeProblem(w, http.StatusBadRequest, "invalid body", "orders must not be empty")
		return
	}
	for i := range body.Orders {
		if err := validateOrder(body.Orders[i]); err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid order", err.Error())
			return
		}
		if body.Orders[i].PlacedAt.IsZero() {
			body.Orders[i].PlacedAt = time.Now().UTC()
		}
		if body.Orders[i].Priority == 0 {
			body.Orders[i].Priority = orders.OrderPriority(body.Orders[i].Items)
		}
	}
	if err := s.store.CreateOrders(r.Context(), body.Orders); err != nil {
		s.writeStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"created": len(body.Orders)})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("storeId")
	if storeID == "" {
		writeProblem(w, http.StatusBadRequest, "invalid query", "storeId is required")
		return
	}
	pending, err := s.store.PendingOrders(r.Context(), storeID)
	if err != nil {
		s.writeStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": pending})
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req plan.Request
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if err := validatePlanRequest(req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	p, solveStats, err := s.planner.Plan(r.Context(), req)
	metrics.SolverDuration.Observe(solveStats.Elapsed.Seconds())
	metrics.SolverIterations.Observe(float64(solveStats.Iterations))
	if err != nil {
		metrics.PlansTotal.WithLabelValues(req.StoreID, "error").Inc()
		s.publish(r.Context(), PlanEvent{
			Type:    "plan.failed",
			StoreID: req.StoreID,
			Detail:  err.Error(),
			At:      time.Now().UTC(),
		})
		switch {
		case errors.Is(err, store.ErrUnknownStore):
			writeProblem(w, http.StatusNotFound, "unknown store", err.Error())
		case errors.Is(err, opt.ErrNoOrders):
			writeProblem(w, http.StatusBadRequest, "no orders", err.Error())
		case errors.Is(err, opt.ErrInfeasible):
			writeProblem(w, http.StatusConflict, "infeasible", err.Error())
		case errors.Is(err, opt.ErrNoSolution):
			writeProblem(w, http.StatusUnprocessableEntity, "no solution", err.Error())
		default:
			writeProblem(w, http.StatusInternalServerError, "planning failed", err.Error())
		}
		return
	}
	metrics.PlansTotal.WithLabelValues(req.StoreID, "ok").Inc()
	s.publish(r.Context(), PlanEvent{
		Type:    "plan.created",
		StoreID: p.StoreID,
		PlanID:  p.ID,
		At:      p.CreatedAt,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) publish(ctx context.Context, ev PlanEvent) {
	if err := s.broker.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("store", ev.StoreID).Msg("publish plan event")
	}
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.ListPlans(r.Context(), r.URL.Query().Get("storeId"), queryInt(r, "limit", 20))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	if plans == nil {
		plans = []model.Plan{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) (model.Plan, bool) {
	p, err := s.store.GetPlan(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "plan not found", "no plan with that id")
		return model.Plan{}, false
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error())
		return model.Plan{}, false
	}
	return p, true
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.getPlan(w, r); ok {
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handlePlanSchedule(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.getPlan(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{"planId": p.ID, "schedule": p.Schedule})
	}
}

func (s *Server) handlePlanSummary(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.getPlan(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"planId":     p.ID,
			"summary":    p.Summary,
			"efficiency": p.Efficiency,
		})
	}
}

func (s *Server) handlePlanExport(w http.ResponseWriter, r *http.Request) {
	p, ok := s.getPlan(w, r)
	if !ok {
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "routes"
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="plan_%s_%s.csv"`, p.ID, kind))
	var err error
	switch kind {
	case "routes":
		err = export.WriteRoutes(w, p.Routes)
	case "schedule":
		err = export.WriteSchedule(w, p.Schedule)
	case "summary":
		err = export.WriteSummary(w, p.Summary, p.Efficiency)
	default:
		w.Header().Del("Content-Disposition")
		writeProblem(w, http.StatusBadRequest, "invalid query", "kind must be routes, schedule, or summary")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("plan", p.ID).Msg("csv export")
	}
}

func (s *Server) handlePlanStream(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("id")
	if _, err := s.store.GetStore(r.Context(), storeID); err != nil {
		s.writeStoreErr(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "streaming unsupported", "response writer cannot flush")
		return
	}
	events, cancel, err := s.broker.Subscribe(r.Context(), storeID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "subscribe failed", err.Error())
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, mustJSON(ev))
			flusher.Flush()
		}
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *Server) handlePlanWS(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("storeId")
	if storeID == "" {
		writeProblem(w, http.StatusBadRequest, "invalid query", "storeId is required")
		return
	}
	if _, err := s.store.GetStore(r.Context(), storeID); err != nil {
		s.writeStoreErr(w, err)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	events, cancel, err := s.broker.Subscribe(r.Context(), storeID)
	if err != nil {
		return
	}
	defer cancel()

	// Read pump only to observe the close handshake.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StoreID string `json:"storeId"`
		Product string `json:"product,omitempty"`
		Day     string `json:"day"` // YYYY-MM-DD, default tomorrow
		Window  int    `json:"window,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if body.StoreID == "" {
		writeProblem(w, http.StatusBadRequest, "invalid body", "storeId is required")
		return
	}
	day := time.Now().AddDate(0, 0, 1)
	if body.Day != "" {
		parsed, err := time.Parse("2006-01-02", body.Day)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid body", "day must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	history, err := s.store.SalesHistory(r.Context(), body.StoreID, 30)
	if err != nil {
		s.writeStoreErr(w, err)
		return
	}
	history = predict.FilterProduct(history, body.Product)
	m := predict.NewMovingAverage(body.Window)
	if err := m.Fit(history); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "insufficient history", err.Error())
		return
	}
	n, err := m.Predict(day)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "prediction failed", err.Error())
		return
	}
	resp := map[string]any{
		"storeId":         body.StoreID,
		"day":             day.Format("2006-01-02"),
		"predictedOrders": n,
	}
	if body.Product != "" {
		resp["product"] = body.Product
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAppendSales(w http.ResponseWriter, r *http.Request) {
	var rec predict.SalesRecord
	if err := decodeJSON(r, &rec); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if rec.StoreID == "" || rec.Day.IsZero() {
		writeProblem(w, http.StatusBadRequest, "invalid body", "storeId and day are required")
		return
	}
	if err := s.store.AppendSales(r.Context(), rec); err != nil {
		s.writeStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var sub model.Subscription
	if err := decodeJSON(r, &sub); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if err := validateSubscription(sub); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid subscription", err.Error())
		return
	}
	created, err := s.store.CreateSubscription(r.Context(), sub)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.store.ListSubscriptions(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteSubscription(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "subscription not found", "no subscription with that id")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	deliveries, err := s.store.ListWebhookDeliveries(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "store error", err.Error())
		return
	}
	if deliveries == nil {
		deliveries = []store.WebhookDelivery{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliveries": deliveries})
}

func (s *Server) writeStoreErr(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnknownStore) {
		writeProblem(w, http.StatusNotFound, "unknown store", err.Error())
		return
	}
	writeProblem(w, http.StatusInternalServerError, "store error", err.Error())
}
