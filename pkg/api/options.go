package api

import (
	"time"

	"github.com/paperlay/paperlay/internal/config"
)

// Options represents configuration options for the document exporter
type Options struct {
	// Page dimensions
	PageWidth  float64
	PageHeight float64
	// Page orientation: portrait or landscape
	PageOrientation PageOrientation

	// Page margins
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	MarginLeft   float64

	// Rasterization scale factor for captured pages
	Oversample float64

	// Measurement settling
	SettleDelay    time.Duration
	FallbackHeight float64

	// Resource paths
	ResourceDir string
	OverlayPath string

	// Document metadata
	Title    string
	Author   string
	Subject  string
	Keywords string
}

// Option is a function that modifies Options
type Option func(*Options)

// PageOrientation represents page orientation
type PageOrientation string

const (
	// PageOrientationPortrait sets the page to portrait orientation
	PageOrientationPortrait PageOrientation = "portrait"
	// PageOrientationLandscape sets the page to landscape orientation
	PageOrientationLandscape PageOrientation = "landscape"
)

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		// Default to A4 paper size (595.28 x 841.89 points)
		PageWidth:  PageSizeA4Width,
		PageHeight: PageSizeA4Height,
		// Default page orientation
		PageOrientation: PageOrientationPortrait,

		// Default margins (1 inch = 72 points)
		MarginTop:    72,
		MarginRight:  72,
		MarginBottom: 72,
		MarginLeft:   72,

		// Default capture scale
		Oversample: 2,

		// Default measurement settling
		SettleDelay:    150 * time.Millisecond,
		FallbackHeight: 40,

		// Default document metadata
		Title:    "",
		Author:   "",
		Subject:  "",
		Keywords: "",
	}
}

// FromConfig builds Options from a loaded configuration file.
func FromConfig(cfg config.Config) (Options, error) {
	w, h, err := cfg.PageSize()
	if err != nil {
		return Options{}, err
	}
	o := DefaultOptions()
	o.PageWidth = w
	o.PageHeight = h
	// PageSize already resolved the orientation into the dimensions.
	if w > h {
		o.PageOrientation = PageOrientationLandscape
	} else {
		o.PageOrientation = PageOrientationPortrait
	}
	o.MarginTop = cfg.Layout.MarginTop
	o.MarginRight = cfg.Layout.MarginRight
	o.MarginBottom = cfg.Layout.MarginBottom
	o.MarginLeft = cfg.Layout.MarginLeft
	o.Oversample = cfg.Render.Oversample
	o.SettleDelay = cfg.SettleDelay()
	o.FallbackHeight = cfg.Layout.FallbackHeight
	o.ResourceDir = cfg.Overlay.AssetDir
	o.OverlayPath = cfg.Overlay.Sidecar
	o.Title = cfg.Document.Title
	o.Author = cfg.Document.Author
	o.Subject = cfg.Document.Subject
	o.Keywords = cfg.Document.Keywords
	return o, nil
}

// WithPageSize sets the page size
func WithPageSize(width, height float64) Option {
	return func(o *Options) {
		o.PageWidth = width
		o.PageHeight = height
	}
}

// WithPageOrientation sets the page orientation
func WithPageOrientation(orientation PageOrientation) Option {
	return func(o *Options) {
		o.PageOrientation = orientation
	}
}

// WithMargins sets the page margins
func WithMargins(top, right, bottom, left float64) Option {
	return func(o *Options) {
		o.MarginTop = top
		o.MarginRight = right
		o.MarginBottom = bottom
		o.MarginLeft = left
	}
}

// WithOversample sets the capture scale factor
func WithOversample(factor float64) Option {
	return func(o *Options) {
		o.Oversample = factor
	}
}

// WithSettleDelay sets how long measurement waits for the surface to settle
func WithSettleDelay(d time.Duration) Option {
	return func(o *Options) {
		o.SettleDelay = d
	}
}

// WithFallbackHeight sets the height assumed for unmeasurable blocks
func WithFallbackHeight(h float64) Option {
	return func(o *Options) {
		o.FallbackHeight = h
	}
}

// WithResourceDir sets the directory overlay image paths resolve against
func WithResourceDir(dir string) Option {
	return func(o *Options) {
		o.ResourceDir = dir
	}
}

// WithOverlayPath sets the overlay sidecar file
func WithOverlayPath(path string) Option {
	return func(o *Options) {
		o.OverlayPath = path
	}
}

// WithTitle sets the document title
func WithTitle(title string) Option {
	return func(o *Options) {
		o.Title = title
	}
}

// WithAuthor sets the document author
func WithAuthor(author string) Option {
	return func(o *Options) {
		o.Author = author
	}
}

// WithSubject sets the document subject
func WithSubject(subject string) Option {
	return func(o *Options) {
		o.Subject = subject
	}
}

// WithKeywords sets the document keywords
func WithKeywords(keywords string) Option {
	return func(o *Options) {
		o.Keywords = keywords
	}
}

// Standard page sizes in points (1/72 inch)
const (
	// A series
	PageSizeA3Width  = 841.89
	PageSizeA3Height = 1190.55
	PageSizeA4Width  = 595.28
	PageSizeA4Height = 841.89
	PageSizeA5Width  = 419.53
	PageSizeA5Height = 595.28

	// US Letter and Legal
	PageSizeLetterWidth  = 612
	PageSizeLetterHeight = 792
	PageSizeLegalWidth   = 612
	PageSizeLegalHeight  = 1008
)

// WithPageSizeA4 sets the page size to A4
func WithPageSizeA4() Option {
	return WithPageSize(PageSizeA4Width, PageSizeA4Height)
}

// WithPageSizeA5 sets the page size to A5
func WithPageSizeA5() Option {
	return WithPageSize(PageSizeA5Width, PageSizeA5Height)
}

// WithPageSizeLetter sets the page size to US Letter
func WithPageSizeLetter() Option {
	return WithPageSize(PageSizeLetterWidth, PageSizeLetterHeight)
}

// WithPageSizeLegal sets the page size to US Legal
func WithPageSizeLegal() Option {
	return WithPageSize(PageSizeLegalWidth, PageSizeLegalHeight)
}
