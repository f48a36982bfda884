package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	_ "image/jpeg"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

var (
	ErrEncodingFailed   = errors.New("qr encoding failed")
	ErrEmblemLoadFailed = errors.New("emblem load failed")
)

const (
	DefaultModulePx       = 10
	DefaultMaxEmblemRatio = 0.3
)

// Options controls the symbol layout. Version 0 lets the encoder pick the
// smallest version that fits the payload.
type Options struct {
	Version        int
	ModulePx       int
	MaxEmblemRatio float64
}

// QRGenerator renders payloads as PNG QR codes at the highest error
// correction level, optionally with a centered emblem.
type QRGenerator struct {
	opts Options
}

func NewQRGenerator(opts Options) *QRGenerator {
	if opts.ModulePx <= 0 {
		opts.ModulePx = DefaultModulePx
	}
	if opts.MaxEmblemRatio <= 0 {
		opts.MaxEmblemRatio = DefaultMaxEmblemRatio
	}
	return &QRGenerator{opts: opts}
}

// Encode renders payload. When emblem is non-nil and emblemSizePx > 0 the
// emblem is resampled to emblemSizePx square and alpha-composited over the
// center of the code.
func (g *QRGenerator) Encode(payload string, emblem image.Image, emblemSizePx int) ([]byte, error) {
	code, err := g.newCode(payload)
	if err != nil {
		return nil, err
	}

	symbol := code.Image(-g.opts.ModulePx)
	bounds := symbol.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, symbol, bounds.Min, draw.Src)

	if emblem != nil && emblemSizePx > 0 {
		maxSize := int(float64(bounds.Dx()) * g.opts.MaxEmblemRatio)
		if emblemSizePx > maxSize {
			return nil, fmt.Errorf("%w: emblem %dpx exceeds %dpx limit for a %dpx code",
				ErrEncodingFailed, emblemSizePx, maxSize, bounds.Dx())
		}
		overlayEmblem(canvas, emblem, emblemSizePx)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return buf.Bytes(), nil
}

func (g *QRGenerator) newCode(payload string) (*qrcode.QRCode, error) {
	var (
		code *qrcode.QRCode
		err  error
	)
	if g.opts.Version > 0 {
		code, err = qrcode.NewWithForcedVersion(payload, g.opts.Version, qrcode.Highest)
	} else {
		code, err = qrcode.New(payload, qrcode.Highest)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return code, nil
}

func overlayEmblem(canvas *image.RGBA, emblem image.Image, size int) {
	scaled := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), emblem, emblem.Bounds(), draw.Src, nil)

	b := canvas.Bounds()
	offset := image.Pt(b.Min.X+(b.Dx()-size)/2, b.Min.Y+(b.Dy()-size)/2)
	target := scaled.Bounds().Add(offset)
	draw.Draw(canvas, target, scaled, image.Point{}, draw.Over)
}

// LoadEmblem decodes a PNG or JPEG emblem from disk.
func LoadEmblem(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmblemLoadFailed, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEmblemLoadFailed, path, err)
	}
	return img, nil
}

// TicketEncoder binds a QRGenerator to the emblem file configured for the
// deployment. The emblem is read on first use and cached; a failed read is
// retried on the next call.
type TicketEncoder struct {
	gen        *QRGenerator
	emblemPath string
	emblemSize int

	mu     sync.Mutex
	emblem image.Image
}

func NewTicketEncoder(gen *QRGenerator, emblemPath string, emblemSizePx int) *TicketEncoder {
	return &TicketEncoder{gen: gen, emblemPath: emblemPath, emblemSize: emblemSizePx}
}

// Encode renders token with the configured emblem. An empty emblem path
// produces a plain code.
func (e *TicketEncoder) Encode(token string) ([]byte, error) {
	emblem, err := e.loadEmblem()
	if err != nil {
		return nil, err
	}
	return e.gen.Encode(token, emblem, e.emblemSize)
}

// Preflight loads the emblem and renders sample so a missing emblem or one
// too large for the configured layout is reported at startup instead of on
// every issuance. sample should look like a real token.
func (e *TicketEncoder) Preflight(sample string) error {
	_, err := e.Encode(sample)
	return err
}

func (e *TicketEncoder) loadEmblem() (image.Image, error) {
	if e.emblemPath == "" || e.emblemSize <= 0 {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.emblem != nil {
		return e.emblem, nil
	}
	img, err := LoadEmblem(e.emblemPath)
	if err != nil {
		return nil, err
	}
	e.emblem = img
	return img, nil
}
