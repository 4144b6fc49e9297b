package main

import (
	"github.com/apexftc/go-auton/internal/log"
	"github.com/apexftc/go-auton/pkg/align"
	"github.com/apexftc/go-auton/pkg/dashboard"
	"github.com/apexftc/go-auton/pkg/hub"
	"github.com/apexftc/go-auton/pkg/metrics"
	"github.com/apexftc/go-auton/pkg/opmode"
	"github.com/apexftc/go-auton/pkg/telemetry"
	"github.com/apexftc/go-auton/pkg/timer"
)

// station holds the observability side of a run: telemetry fan-out,
// metrics and the optional dashboard.
type station struct {
	in     opmode.Instruments
	hub    *hub.Hub
	server *dashboard.Server
}

func newStation(clock timer.Clock, dashboardAddr string, tune *align.Tunable, status dashboard.StatusFunc) *station {
	tlog := log.Component("telemetry")
	st := &station{
		in: opmode.Instruments{
			Telemetry: telemetry.New(clock, tlog, telemetry.NewLogPublisher(tlog, telemetry.DefaultLogEvery)),
			Metrics:   metrics.New(true),
			Logger:    log.Component("opmode"),
		},
	}
	if dashboardAddr == "" {
		return st
	}

	st.hub = hub.New("telemetry", log.Component("hub"))
	go st.hub.Run()
	st.in.Telemetry.AddPublisher(st.hub)

	st.server = dashboard.NewServer(dashboard.Options{
		Addr:    dashboardAddr,
		Hub:     st.hub,
		Tuning:  tune,
		Metrics: st.in.Metrics,
		Status:  status,
		Logger:  log.Component("dashboard"),
	})
	st.server.StartAsync()
	return st
}

func (st *station) Close() {
	if st.server != nil {
		if err := st.server.Shutdown(); err != nil {
			logger.Warn().Err(err).Msg("dashboard shutdown")
		}
	}
	if st.hub != nil {
		st.hub.Stop()
	}
}
