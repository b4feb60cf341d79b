package bulletins

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/flockhq/flock/internal/app/domain/bulletin"
	"github.com/flockhq/flock/internal/app/domain/settings"
	"github.com/flockhq/flock/internal/app/metrics"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
)

// Format is a rendered output type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Mode selects page arrangement.
type Mode string

const (
	// ModeScreen emits the four pages in reading order.
	ModeScreen Mode = "screen"
	// ModeBooklet imposes the pages on one letter sheet folded in half.
	ModeBooklet Mode = "booklet"
)

// ParseFormat validates s. Empty means pdf.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatHTML:
		return FormatHTML, nil
	}
	return "", apperrors.Validationf("unsupported format %q", s)
}

// ParseMode validates s. Empty means screen.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeScreen:
		return ModeScreen, nil
	case ModeBooklet:
		return ModeBooklet, nil
	}
	return "", apperrors.Validationf("unsupported mode %q", s)
}

// Rendered is a rendered bulletin.
type Rendered struct {
	Body        []byte
	ContentType string
	Filename    string
	Cached      bool
}

// Render produces the bulletin in the given format and mode. Output is cached
// per bulletin version, branding version, upcoming list, format and mode.
func (s *Service) Render(ctx context.Context, id string, format Format, mode Mode) (Rendered, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return Rendered{}, err
	}
	mode, err = ParseMode(string(mode))
	if err != nil {
		return Rendered{}, err
	}
	start := time.Now()

	b, err := s.Get(ctx, id)
	if err != nil {
		return Rendered{}, err
	}
	st, err := s.loadSettings(ctx)
	if err != nil {
		return Rendered{}, err
	}

	out := Rendered{
		ContentType: contentType(format),
		Filename:    fmt.Sprintf("bulletin-%s-%s.%s", b.ServiceDate, mode, format),
	}
	upcoming, err := s.store.ListBulletins(ctx, b.ServiceDate.AddDays(1), b.ServiceDate.AddDays(UpcomingWindowDays))
	if err != nil {
		return Rendered{}, err
	}
	key := cacheKey(ctx, b, st, upcoming, format, mode)
	if s.cache != nil {
		body, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.WithError(err).WithField("bulletin_id", id).Warn("bulletin cache read failed")
		} else if ok {
			out.Body, out.Cached = body, true
			metrics.RecordBulletinRender(string(format), string(mode), true, time.Since(start))
			return out, nil
		}
	}

	view := buildView(b, st, upcoming)

	switch format {
	case FormatHTML:
		out.Body, err = renderHTML(view, mode)
	default:
		out.Body, err = renderPDF(view, mode, b.UpdatedAt)
	}
	if err != nil {
		return Rendered{}, apperrors.Internal("render bulletin", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out.Body, s.cacheTTL); err != nil {
			s.log.WithError(err).WithField("bulletin_id", id).Warn("bulletin cache write failed")
		}
	}
	metrics.RecordBulletinRender(string(format), string(mode), false, time.Since(start))
	s.log.WithField("bulletin_id", id).
		WithField("format", format).
		WithField("mode", mode).
		WithField("bytes", len(out.Body)).
		Debug("bulletin rendered")
	return out, nil
}

// cacheKey covers everything printed: the bulletin, branding and the
// upcoming list on the back page.
func cacheKey(ctx context.Context, b bulletin.Bulletin, st settings.Settings, upcoming []bulletin.Bulletin, format Format, mode Mode) string {
	tenantID, _ := tenancy.FromContext(ctx)
	return fmt.Sprintf("bulletin:%s:%s:%d:%d:%016x:%s:%s",
		tenantID, b.ID, b.UpdatedAt.UTC().UnixNano(), st.UpdatedAt.UTC().UnixNano(),
		upcomingFingerprint(upcoming), format, mode)
}

func upcomingFingerprint(upcoming []bulletin.Bulletin) uint64 {
	d := xxhash.New()
	for _, u := range upcoming {
		_, _ = fmt.Fprintf(d, "%s|%s|%s|%d\n", u.ID, u.ServiceDate, u.Title, u.UpdatedAt.UTC().UnixNano())
	}
	return d.Sum64()
}

func contentType(f Format) string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "application/pdf"
}
