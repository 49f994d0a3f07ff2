package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-anchors/pkg/detection"
	"github.com/teslashibe/go-anchors/pkg/readback"
)

// PolygonDecoder finds codes in a JPEG frame. detection.QRDecoder is one.
type PolygonDecoder interface {
	Decode(jpeg []byte) ([]detection.Polygon, error)
}

// QRScanner feeds a pipeline from a QR decoder. Scans never overlap; a scan
// requested while another runs is refused.
type QRScanner struct {
	pipeline *Pipeline
	decoder  PolygonDecoder
	logger   *slog.Logger
	scanning atomic.Bool
	wg       sync.WaitGroup

	// OnReport is called after each completed scan.
	OnReport func(Report)
}

// NewQRScanner wires a decoder into p.
func NewQRScanner(p *Pipeline, dec PolygonDecoder) (*QRScanner, error) {
	switch {
	case p == nil:
		return nil, missing("pipeline")
	case dec == nil:
		return nil, missing("decoder")
	}
	return &QRScanner{
		pipeline: p,
		decoder:  dec,
		logger:   p.logger.With("loop", "qr"),
	}, nil
}

// Scan decodes the current frame and runs a cycle over what it finds. It
// returns readback.ErrAdmissionRejected while another scan is running.
func (s *QRScanner) Scan() (Report, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return Report{}, readback.ErrAdmissionRejected
	}
	defer s.scanning.Store(false)

	frame, err := s.pipeline.Capture()
	if err != nil {
		return Report{}, err
	}

	polys, err := s.decoder.Decode(frame.Image)
	if err != nil {
		return Report{Seq: frame.Seq}, fmt.Errorf("decode: %w", err)
	}

	dets := make([]detection.Detection, len(polys))
	for i, p := range polys {
		dets[i] = p
	}

	rep := s.pipeline.Process(frame, dets)
	if s.OnReport != nil {
		s.OnReport(rep)
	}
	return rep, nil
}

// Scanning reports whether a scan is in progress.
func (s *QRScanner) Scanning() bool {
	return s.scanning.Load()
}

// Run scans on every detect interval until ctx is cancelled. Scans run in their
// own goroutine so a slow decode never delays the ticker. Run returns only
// after the scan in flight has finished, so the decoder may be closed then.
func (s *QRScanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pipeline.Config().DetectInterval)
	defer ticker.Stop()

	s.logger.Info("qr scanner started", "interval", s.pipeline.Config().DetectInterval)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("qr scanner stopped")
			return

		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.scanAndLog()
			}()
		}
	}
}

func (s *QRScanner) scanAndLog() {
	_, err := s.Scan()
	switch {
	case err == nil,
		errors.Is(err, readback.ErrAdmissionRejected),
		errors.Is(err, ErrCameraNotPlaying):
	default:
		s.logger.Warn("scan failed", "error", err)
	}
}
