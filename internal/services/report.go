package services

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	types "github.com/yungbote/checkin-engine/internal/domain"
	"github.com/yungbote/checkin-engine/internal/modules/checkin"
	"github.com/yungbote/checkin-engine/internal/platform/logger"
)

const (
	reportWidth  = 800
	reportHeight = 520
)

var (
	reportBackground = color.NRGBA{R: 0xF7, G: 0xF8, B: 0xFA, A: 0xFF}
	reportInk        = color.NRGBA{R: 0x1F, G: 0x29, B: 0x37, A: 0xFF}
	reportMuted      = color.NRGBA{R: 0x6B, G: 0x72, B: 0x80, A: 0xFF}
	reportTrack      = color.NRGBA{R: 0xE5, G: 0xE7, B: 0xEB, A: 0xFF}
	reportGood       = color.NRGBA{R: 0x10, G: 0xB9, B: 0x81, A: 0xFF}
	reportWarn       = color.NRGBA{R: 0xF5, G: 0x9E, B: 0x0B, A: 0xFF}
	reportBad        = color.NRGBA{R: 0xEF, G: 0x44, B: 0x44, A: 0xFF}
)

// ReportService renders the weekly progress card attached to a check-in.
type ReportService struct {
	log     *logger.Logger
	regular *truetype.Font
	bold    *truetype.Font
}

func NewReportService(baseLog *logger.Logger) (*ReportService, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	return &ReportService{
		log:     baseLog.With("service", "ReportService"),
		regular: regular,
		bold:    bold,
	}, nil
}

func (s *ReportService) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

func (s *ReportService) Render(ctx context.Context, in checkin.ReportInput) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := "Client"
	if in.Client != nil && strings.TrimSpace(in.Client.DisplayName) != "" {
		name = strings.TrimSpace(in.Client.DisplayName)
	}
	m := in.Metrics

	dc := gg.NewContext(reportWidth, reportHeight)
	dc.SetColor(reportBackground)
	dc.Clear()

	dc.SetColor(reportInk)
	dc.SetFontFace(s.face(s.bold, 30))
	dc.DrawString(name, 40, 60)
	dc.SetColor(reportMuted)
	dc.SetFontFace(s.face(s.regular, 18))
	dc.DrawString("Week of "+in.WeekStart, 40, 90)

	rows := []struct {
		label string
		pct   float64
		note  string
	}{
		{"Logging", float64(m.UploadPercentage), fmt.Sprintf("%d logs / 7 days", m.UploadCount)},
		{"Calories", m.AvgCalorieCompliance, fmt.Sprintf("%.1f%% of target", m.AvgCalorieCompliance)},
		{"Protein", m.AvgProteinCompliance, fmt.Sprintf("%.1f%% of target", m.AvgProteinCompliance)},
	}
	y := 140.0
	for _, r := range rows {
		s.drawBar(dc, y, r.label, r.pct, r.note)
		y += 80
	}

	dc.SetColor(reportInk)
	dc.SetFontFace(s.face(s.bold, 20))
	dc.DrawString("Weight", 40, y+10)
	dc.SetFontFace(s.face(s.regular, 18))
	dc.SetColor(reportMuted)
	dc.DrawString(weightLine(m, in.Bundle.WeightEntries), 160, y+10)

	s.drawSparkline(dc, in.Bundle.WeightEntries, 40, y+30, reportWidth-80, 60)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode report png: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ReportService) drawBar(dc *gg.Context, y float64, label string, pct float64, note string) {
	const (
		x      = 40.0
		trackW = reportWidth - 80.0
		trackH = 18.0
	)
	pct = math.Max(0, math.Min(100, pct))

	dc.SetColor(reportInk)
	dc.SetFontFace(s.face(s.bold, 20))
	dc.DrawString(label, x, y)
	dc.SetColor(reportMuted)
	dc.SetFontFace(s.face(s.regular, 16))
	dc.DrawStringAnchored(note, x+trackW, y, 1, 0)

	dc.SetColor(reportTrack)
	dc.DrawRoundedRectangle(x, y+12, trackW, trackH, trackH/2)
	dc.Fill()
	if pct > 0 {
		dc.SetColor(barColor(pct))
		dc.DrawRoundedRectangle(x, y+12, math.Max(trackH, trackW*pct/100), trackH, trackH/2)
		dc.Fill()
	}
}

func (s *ReportService) drawSparkline(dc *gg.Context, entries []*types.WeightEntry, x, y, w, h float64) {
	pts := make([]*types.WeightEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			pts = append(pts, e)
		}
	}
	if len(pts) < 2 {
		return
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].RecordedAt.Before(pts[j].RecordedAt) })
	lo, hi := pts[0].Weight, pts[0].Weight
	for _, p := range pts {
		lo, hi = math.Min(lo, p.Weight), math.Max(hi, p.Weight)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	dc.SetColor(reportInk)
	dc.SetLineWidth(2)
	for i, p := range pts {
		px := x + w*float64(i)/float64(len(pts)-1)
		py := y + h - h*(p.Weight-lo)/span
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.Stroke()
}

func barColor(pct float64) color.Color {
	switch {
	case pct >= 85:
		return reportGood
	case pct >= 60:
		return reportWarn
	default:
		return reportBad
	}
}

func weightLine(m checkin.AdherenceMetrics, entries []*types.WeightEntry) string {
	switch {
	case m.WeightLogCount == 0:
		return "no readings this week"
	case m.WeightLogCount == 1:
		for _, e := range entries {
			if e != nil {
				return fmt.Sprintf("1 reading (%.1f)", e.Weight)
			}
		}
		return "1 reading"
	default:
		return fmt.Sprintf("%d readings, change %+.1f", m.WeightLogCount, m.WeightChange)
	}
}
