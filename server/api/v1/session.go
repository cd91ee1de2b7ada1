package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/corefmt"
	"github.com/zintix-labs/clawlab/dto"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/server/httperr"
	"github.com/zintix-labs/clawlab/server/netsvr"
	"github.com/zintix-labs/clawlab/server/netsvr/middleware"
	"github.com/zintix-labs/clawlab/server/svrcfg"
	"github.com/zintix-labs/clawlab/spec"
	"github.com/zintix-labs/clawlab/store"
)

// ============================================================
// ** SessionHandler **
// ============================================================

type SessionHandler struct {
	arcade  *clawlab.Arcade
	store   *store.Store
	log     *slog.Logger
	timeout time.Duration
}

func NewSessionHandler(sCfg *svrcfg.SvrCfg, arcade *clawlab.Arcade) (*SessionHandler, error) {
	if arcade == nil {
		return nil, errs.NewFatal("arcade is required")
	}
	return &SessionHandler{
		arcade:  arcade,
		store:   sCfg.Store,
		log:     sCfg.Log,
		timeout: sCfg.CmdTimeout,
	}, nil
}

// Open POST /v1/sessions
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeOpenRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	mid, err := h.resolve(req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var s *clawlab.Session
	if req.Seed != nil {
		s, err = h.arcade.OpenWithSeed(ctx, mid, *req.Seed)
	} else {
		s, err = h.arcade.Open(ctx, mid)
	}
	if err != nil {
		httperr.Log(h.log, "session.open", err)
		httperr.Errs(w, err)
		return
	}
	if h.store != nil {
		rec := &store.SessionRecord{
			ID:          s.ID,
			MachineID:   mid,
			MachineName: s.Machine.MachineName(),
			Player:      req.Player,
			Seed:        s.Machine.Seed(),
			OpenedAt:    s.OpenedAt,
			Coins:       s.Machine.Progress().Coins,
		}
		if _, err := h.store.SaveSession(ctx, rec); err != nil {
			// 沒寫進 store 的 session 不能留在線上，否則結束時無處結算
			_, _ = h.arcade.CloseSession(s.ID)
			httperr.Log(h.log, "session.open", err)
			httperr.Errs(w, err)
			return
		}
	}
	h.log.Info("session.open",
		slog.String("sid", s.ID),
		slog.Uint64("mid", uint64(mid)),
		slog.Int64("seed", s.Machine.Seed()),
		slog.String("player", req.Player),
		slog.Int("online", h.arcade.Len()),
		slog.String("req", middleware.GetReqIdNumPart(r)),
	)
	out, err := dto.NewSession(s)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *SessionHandler) resolve(req *dto.OpenRequest) (spec.MID, error) {
	if req.MachineID != 0 {
		return req.MachineID, nil
	}
	e, ok := h.arcade.Lab().EntryByName(req.MachineName)
	if !ok {
		return 0, errs.NotFoundf("machine %q not found", req.MachineName)
	}
	return e.MID, nil
}

// List GET /v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ss := h.arcade.List()
	out := make([]dto.Session, 0, len(ss))
	for _, s := range ss {
		v, err := dto.NewSession(s)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, struct {
		Capacity int           `json:"capacity"`
		Sessions []dto.Session `json:"sessions"`
	}{h.arcade.Capacity(), out})
}

// Get GET /v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.arcade.Get(netsvr.Param(r, "id"))
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	out, err := dto.NewSession(s)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Command POST /v1/sessions/{id}/{op}
func (h *SessionHandler) Command(op clawlab.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.arcade.Get(netsvr.Param(r, "id"))
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		cmd, err := dto.DecodeCommandRequest(r, op)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		out, err := s.Machine.Apply(cmd)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.CommandResult{Op: op, Outcome: out, State: s.Machine.State()})
	}
}

// Close DELETE /v1/sessions/{id}：緊急停止、移出 Arcade、結算並保存 journal。
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	s, err := h.arcade.CloseSession(netsvr.Param(r, "id"))
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	out, err := dto.NewClosed(s)
	if err != nil {
		httperr.Log(h.log, "session.close", err)
		httperr.Errs(w, err)
		return
	}
	st := s.Machine.Progress()
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := h.store.FinishSession(ctx, s.ID, st, out.CoreB64U); err != nil {
			httperr.Log(h.log, "session.close", err)
			httperr.Errs(w, err)
			return
		}
		if err := h.store.SaveJournal(ctx, s.ID, s.Machine.Journal()); err != nil {
			httperr.Log(h.log, "session.close", err)
			httperr.Errs(w, err)
			return
		}
	}
	h.log.Info("session.close",
		slog.String("sid", s.ID),
		slog.Int("commands", out.Commands),
		slog.Int("plays", st.Plays),
		slog.Int("wins", st.Wins),
		slog.Int("points", st.Points),
		slog.Int("online", h.arcade.Len()),
		slog.String("req", middleware.GetReqIdNumPart(r)),
	)
	writeJSON(w, http.StatusOK, out)
}

// Journal GET /v1/sessions/{id}/journal：已結束 session 的保存紀錄，可直接餵給 /v1/replay。
func (h *SessionHandler) Journal(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		httperr.Errs(w, errs.NewNotFound("store is disabled"))
		return
	}
	id := netsvr.Param(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	rec, err := h.store.GetSession(ctx, id)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	cmds, err := h.store.LoadJournal(ctx, id)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	blob, err := corefmt.EncodeJournal(cmds)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Session *store.SessionRecord `json:"session"`
		Replay  dto.ReplayRequest    `json:"replay"`
	}{
		Session: rec,
		Replay: dto.ReplayRequest{
			MachineID:   rec.MachineID,
			Seed:        rec.Seed,
			JournalB64U: corefmt.EncodeBase64URL(blob),
			ExpectB64U:  rec.CoreB64U,
		},
	})
}
