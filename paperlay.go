package paperlay

import (
	"github.com/paperlay/paperlay/pkg/api"
)

type Exporter = api.Exporter
type Options = api.Options
type Option = api.Option
type PageOrientation = api.PageOrientation
type PreviewPage = api.PreviewPage
type PreviewBlock = api.PreviewBlock

func New() *Exporter                           { return api.New() }
func NewWithOptions(options Options) *Exporter { return api.NewWithOptions(options) }
func DefaultOptions() Options                  { return api.DefaultOptions() }

var (
	WithPageSize        = api.WithPageSize
	WithPageOrientation = api.WithPageOrientation
	WithMargins         = api.WithMargins
	WithOversample      = api.WithOversample
	WithSettleDelay     = api.WithSettleDelay
	WithFallbackHeight  = api.WithFallbackHeight
	WithResourceDir     = api.WithResourceDir
	WithOverlayPath     = api.WithOverlayPath
	WithTitle           = api.WithTitle
	WithAuthor          = api.WithAuthor
	WithSubject         = api.WithSubject
	WithKeywords        = api.WithKeywords
	WithPageSizeA4      = api.WithPageSizeA4
	WithPageSizeA5      = api.WithPageSizeA5
	WithPageSizeLetter  = api.WithPageSizeLetter
	WithPageSizeLegal   = api.WithPageSizeLegal
)

const (
	PageSizeA3Width  = api.PageSizeA3Width
	PageSizeA3Height = api.PageSizeA3Height
	PageSizeA4Width  = api.PageSizeA4Width
	PageSizeA4Height = api.PageSizeA4Height
	PageSizeA5Width  = api.PageSizeA5Width
	PageSizeA5Height = api.PageSizeA5Height

	PageSizeLetterWidth  = api.PageSizeLetterWidth
	PageSizeLetterHeight = api.PageSizeLetterHeight
	PageSizeLegalWidth   = api.PageSizeLegalWidth
	PageSizeLegalHeight  = api.PageSizeLegalHeight

	PageOrientationPortrait  = api.PageOrientationPortrait
	PageOrientationLandscape = api.PageOrientationLandscape
)
