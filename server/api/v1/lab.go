package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zintix-labs/clawlab"
	"github.com/zintix-labs/clawlab/catalog"
	"github.com/zintix-labs/clawlab/dto"
	"github.com/zintix-labs/clawlab/errs"
	"github.com/zintix-labs/clawlab/server/httperr"
	"github.com/zintix-labs/clawlab/server/svrcfg"
	"github.com/zintix-labs/clawlab/spec"
	"github.com/zintix-labs/clawlab/store"
)

// ============================================================
// ** LabHandler ** 機台目錄、模擬、重播、排行榜
// ============================================================

type LabHandler struct {
	lab        *clawlab.Clawlab
	store      *store.Store
	log        *slog.Logger
	timeout    time.Duration
	simTimeout time.Duration
}

func NewLabHandler(sCfg *svrcfg.SvrCfg) (*LabHandler, error) {
	if sCfg.Lab == nil {
		return nil, errs.NewFatal("clawlab is required")
	}
	return &LabHandler{
		lab:        sCfg.Lab,
		store:      sCfg.Store,
		log:        sCfg.Log,
		timeout:    sCfg.CmdTimeout,
		simTimeout: sCfg.SimTimeout,
	}, nil
}

// Machines GET /v1/machines
func (h *LabHandler) Machines(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type machinesResponse struct {
		Machines   []catalog.Summary `json:"machines"`
		Strategies []string          `json:"strategies"`
	}
	sum, err := h.lab.Summary()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, machinesResponse{Machines: sum, Strategies: h.lab.Strategies()})
}

// Sim GET|POST /v1/sim
func (h *LabHandler) Sim(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSimRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	var sim *clawlab.Simulator
	if req.Seed != nil {
		sim, err = h.lab.NewSimulatorWithSeed(req.MachineID, *req.Seed)
	} else {
		sim, err = h.lab.NewSimulator(req.MachineID)
	}
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "build simulator err"))
		return
	}
	if req.Strategy != "" {
		if err := sim.SetStrategy(req.Strategy); err != nil {
			httperr.Errs(w, err)
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.simTimeout)
	defer cancel()
	rep, est, used, err := sim.SimPlayers(ctx, req.Workers, req.Players, false)
	if err != nil {
		httperr.Log(h.log, "sim", err)
		httperr.Errs(w, err)
		return
	}
	out := dto.SimResult{
		Seed:     sim.Seed(),
		Strategy: sim.Strategy(),
		UsedMs:   used.Milliseconds(),
		Report:   rep,
		Players:  est,
	}
	if h.store != nil {
		run := &store.SimRun{
			MachineID: req.MachineID,
			Strategy:  out.Strategy,
			Seed:      out.Seed,
			UsedMs:    out.UsedMs,
			Report:    rep,
		}
		// 保存失敗不影響本次結果
		if id, err := h.store.SaveSimRun(ctx, run); err != nil {
			h.log.Warn("sim.save", slog.Any("err", err))
		} else {
			out.RunID = id
		}
	}
	h.log.Info("sim",
		slog.Uint64("mid", uint64(req.MachineID)),
		slog.String("strategy", out.Strategy),
		slog.Int("players", req.Players),
		slog.Int("workers", req.Workers),
		slog.Int64("used_ms", out.UsedMs),
	)
	writeJSON(w, http.StatusOK, out)
}

// SimRuns GET /v1/sim/runs?machine_id=&limit=
func (h *LabHandler) SimRuns(w http.ResponseWriter, r *http.Request) {
	mid, limit, err := h.listQuery(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	runs, err := h.store.ListSimRuns(ctx, mid, limit)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Runs []store.SimRun `json:"runs"`
	}{runs})
}

// Leaderboard GET /v1/leaderboard?machine_id=&limit=
func (h *LabHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	mid, limit, err := h.listQuery(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	rows, err := h.store.Leaderboard(ctx, mid, limit)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		MachineID spec.MID                 `json:"machine_id"`
		Entries   []store.LeaderboardEntry `json:"entries"`
	}{mid, rows})
}

// listQuery machine_id 必填且需存在；limit 交給 store 夾在範圍內
func (h *LabHandler) listQuery(r *http.Request) (spec.MID, int, error) {
	if h.store == nil {
		return 0, 0, errs.NewNotFound("store is disabled")
	}
	q := r.URL.Query()
	id, err := queryInt(q, "machine_id", 0)
	if err != nil {
		return 0, 0, err
	}
	if id <= 0 {
		return 0, 0, errs.NewWarn("machine_id is required")
	}
	if _, ok := h.lab.EntryByID(spec.MID(id)); !ok {
		return 0, 0, errs.NotFoundf("machine %d not found", id)
	}
	limit, err := queryInt(q, "limit", 0)
	if err != nil {
		return 0, 0, err
	}
	return spec.MID(id), limit, nil
}

// Replay POST /v1/replay：以 seed 重跑指令紀錄，expect_b64u 有給時一併比對 Core 快照。
func (h *LabHandler) Replay(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeReplayRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	res, err := h.lab.Replay(req.MachineID, req.Seed, req.Commands)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	out := dto.NewReplayResult(res, req.ExpectB64U)
	if !out.Verified {
		h.log.Warn("replay.mismatch",
			slog.Uint64("mid", uint64(req.MachineID)),
			slog.Int64("seed", req.Seed),
			slog.String("reason", out.Reason),
		)
	}
	writeJSON(w, http.StatusOK, out)
}
