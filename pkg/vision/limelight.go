package vision

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexftc/go-auton/internal/httpc"
)

// LimelightConfig configures the Limelight poller.
type LimelightConfig struct {
	URL string // base URL, e.g. http://limelight.local:5807
	// UnitScale converts coprocessor distances (meters) to controller units.
	UnitScale float64
	// Timeout bounds one poll. Zero uses httpc.LoopTimeout.
	Timeout time.Duration
}

// limelightResults is the subset of the /results document we read.
type limelightResults struct {
	Valid    int                 `json:"v"`
	Fiducial []limelightFiducial `json:"Fiducial"`
	Results  *struct {
		Valid    int                 `json:"v"`
		Fiducial []limelightFiducial `json:"Fiducial"`
	} `json:"Results"`
}

type limelightFiducial struct {
	ID int `json:"fID"`
	// Target pose in camera space: x, y, z (meters), pitch, yaw, roll (degrees).
	TargetCameraSpace []float64 `json:"t6t_cs"`
}

// Limelight polls a Limelight coprocessor's JSON results endpoint.
type Limelight struct {
	cfg    LimelightConfig
	client *http.Client
	logger zerolog.Logger

	mu     sync.Mutex
	dets   Detections
	closed bool
}

// NewLimelight creates a poller. client may be nil.
func NewLimelight(cfg LimelightConfig, client *http.Client, logger zerolog.Logger) *Limelight {
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpc.LoopTimeout
	}
	if cfg.UnitScale == 0 {
		cfg.UnitScale = 1
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}
	return &Limelight{cfg: cfg, client: client, logger: logger}
}

// Update fetches the latest results. Any failure clears the detections.
func (l *Limelight) Update(ctx context.Context) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	var res limelightResults
	if err := httpc.GetJSON(ctx, l.client, l.cfg.URL+"/results", &res); err != nil {
		l.set(nil)
		return err
	}
	l.set(l.convert(res))
	return nil
}

func (l *Limelight) convert(res limelightResults) Detections {
	valid, fids := res.Valid, res.Fiducial
	if res.Results != nil {
		valid, fids = res.Results.Valid, res.Results.Fiducial
	}
	if valid == 0 {
		return nil
	}
	dets := make(Detections, 0, len(fids))
	for _, f := range fids {
		d := Detection{ID: f.ID}
		if len(f.TargetCameraSpace) >= 6 && !allZero(f.TargetCameraSpace) {
			d.Pose = &RelativePose{
				X:   f.TargetCameraSpace[0] * l.cfg.UnitScale,
				Z:   f.TargetCameraSpace[2] * l.cfg.UnitScale,
				Yaw: f.TargetCameraSpace[4],
			}
		}
		dets = append(dets, d)
	}
	return dets
}

func (l *Limelight) set(d Detections) {
	l.mu.Lock()
	l.dets = d
	l.mu.Unlock()
}

// Detections returns the detections from the last Update.
func (l *Limelight) Detections() Detections {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(Detections, len(l.dets))
	copy(out, l.dets)
	return out
}

// DetectionByID looks up a detection from the last Update.
func (l *Limelight) DetectionByID(id int) (Detection, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dets.ByID(id)
}

// Close ends the session. Idle connections are dropped.
func (l *Limelight) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.dets = nil
	l.client.CloseIdleConnections()
	l.logger.Info().Str("url", l.cfg.URL).Msg("vision session closed")
	return nil
}

func allZero(vs []float64) bool {
	for _, v := range vs {
		if v != 0 {
			return false
		}
	}
	return true
}
