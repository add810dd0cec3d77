package embedded

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spicery/glint/pkg/scanner"
	"github.com/spicery/glint/pkg/strsearch"
	"github.com/spicery/glint/pkg/tokenizer"
)

// Renderer turns a piece of the document into tagged text.
type Renderer func(text string) (string, error)

// DefaultServerClose closes a server block.
const DefaultServerClose = `\?>`

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	// ServerOpen and ServerClose are regexes delimiting server blocks.
	ServerOpen  string
	ServerClose string
	Match       strsearch.Options
	Logger      zerolog.Logger
}

type region struct {
	open    strsearch.Pattern
	scanner *ScriptScanner
}

// Bridge highlights a host document, typically HTML, where server blocks
// may appear anywhere and script regions are handled by persistent
// ScriptScanners.
type Bridge struct {
	host        Renderer
	server      Renderer
	opts        BridgeOptions
	serverOpen  strsearch.Pattern
	serverClose strsearch.Pattern

	regions []region
}

// NewBridge returns a bridge that renders host text with host and server
// blocks, tags included, with server.
func NewBridge(host, server Renderer, opts BridgeOptions) *Bridge {
	if opts.ServerOpen == "" {
		opts.ServerOpen = DefaultServerTag
	}
	if opts.ServerClose == "" {
		opts.ServerClose = DefaultServerClose
	}
	return &Bridge{
		host:        host,
		server:      server,
		opts:        opts,
		serverOpen:  strsearch.Regex(opts.ServerOpen),
		serverClose: strsearch.Regex(opts.ServerClose),
	}
}

// Embed scans regions starting after a match of open, a regex such as
// (?i)<script[^>]*>, with a scanner for cfg. Earlier registrations win
// when two openers match at the same place.
func (b *Bridge) Embed(open string, cfg Config) {
	sc := New(cfg, Options{
		Server:    true,
		ServerTag: b.opts.ServerOpen,
		HTML:      true,
		Match:     b.opts.Match,
		Logger:    b.opts.Logger,
	})
	b.regions = append(b.regions, region{open: strsearch.Regex(open), scanner: sc})
}

// WebBridge embeds ECMAScript in script elements and CSS in style
// elements.
func WebBridge(host, server Renderer, opts BridgeOptions) *Bridge {
	b := NewBridge(host, server, opts)
	b.Embed(`(?i)<script(?:\s[^>]*)?>`, ECMAScript())
	b.Embed(`(?i)<style(?:\s[^>]*)?>`, CSS())
	return b
}

// Render returns doc as tagged text.
func (b *Bridge) Render(doc string) (string, error) {
	host := scanner.New(doc, b.opts.Match)
	doc = host.String()
	closers := strsearch.New(doc, b.opts.Match)
	for _, r := range b.regions {
		r.scanner.SetString(doc)
	}
	openers := []strsearch.Pattern{b.serverOpen}
	for _, r := range b.regions {
		openers = append(openers, r.open)
	}

	var out strings.Builder
	emitHost := func(text string) error {
		if text == "" {
			return nil
		}
		tagged, err := b.host(text)
		if err != nil {
			return err
		}
		out.WriteString(tagged)
		return nil
	}

	pos := 0
	for pos < len(doc) {
		host.SetPos(pos)
		i, m := host.NextOf(openers)
		if err := host.Err(); err != nil {
			return "", err
		}
		if i < 0 {
			if err := emitHost(doc[pos:]); err != nil {
				return "", err
			}
			break
		}
		var err error
		if i == 0 {
			if err = emitHost(doc[pos:m.Start]); err == nil {
				pos, err = b.renderServer(&out, closers, m.Start)
			}
		} else {
			if err = emitHost(doc[pos:m.End]); err == nil {
				pos, err = b.renderScript(&out, closers, b.regions[i-1].scanner, m.End)
			}
		}
		if err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

// renderServer renders the server block starting at at and returns the
// offset after it. An unclosed block runs to the end of the document.
func (b *Bridge) renderServer(out *strings.Builder, closers *strsearch.Matcher, at int) (int, error) {
	doc := closers.Source()
	end := len(doc)
	m, ok, err := closers.Find(b.serverClose, at)
	if err != nil {
		return 0, err
	}
	if ok {
		end = m.End
	}
	tagged, err := b.server(doc[at:end])
	if err != nil {
		return 0, err
	}
	out.WriteString(tagged)
	return end, nil
}

// renderScript runs sc from at until its region ends, rendering any server
// blocks that interrupt it, and returns where host text resumes.
func (b *Bridge) renderScript(out *strings.Builder, closers *strsearch.Matcher, sc *ScriptScanner, at int) (int, error) {
	sc.SetPos(at)
	for {
		status := sc.Run()
		for _, tok := range sc.Tokens() {
			out.WriteString(tokenizer.TagBlock(tok.KindName(), tokenizer.EscapeString(tok.Text), false))
		}
		if err := sc.Err(); err != nil {
			return 0, fmt.Errorf("%s: %w", sc.Language(), err)
		}
		if status != Interrupted {
			b.opts.Logger.Debug().Str("language", sc.Language()).Stringer("status", status).Int("pos", sc.Pos()).Msg("script region done")
			return sc.Pos(), nil
		}
		end, err := b.renderServer(out, closers, sc.Pos())
		if err != nil {
			return 0, err
		}
		b.opts.Logger.Debug().Str("language", sc.Language()).Bool("dirty", sc.Dirty()).Int("resume", end).Msg("script interrupted")
		if end >= len(closers.Source()) {
			return end, nil
		}
		sc.SetPos(end)
	}
}
