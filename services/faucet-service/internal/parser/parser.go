package parser

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/burakmert236/xsgfaucet/common/config"
)

type AddressValidator interface {
	ValidateAddress(ctx context.Context, address string) (bool, error)
}

// Parser extracts payout addresses and applies the text filters of a post.
type Parser struct {
	validator AddressValidator
	prefixes  []string
	minLength int
	hashtags  []string
}

func NewParser(validator AddressValidator, cfg config.BotConfig) *Parser {
	hashtags := make([]string, 0, len(cfg.TrackHashtags))
	for _, tag := range cfg.TrackHashtags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		hashtags = append(hashtags, tag)
	}

	return &Parser{
		validator: validator,
		prefixes:  cfg.AddressPrefixes,
		minLength: cfg.AddressMinLength,
		hashtags:  hashtags,
	}
}

// ExtractAddress returns the first candidate token the node accepts, or "" when none does.
func (p *Parser) ExtractAddress(ctx context.Context, text string) (string, error) {
	for _, candidate := range p.candidates(text) {
		ok, err := p.validator.ValidateAddress(ctx, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}
	return "", nil
}

func (p *Parser) candidates(text string) []string {
	out := make([]string, 0)
	for _, word := range strings.Fields(text) {
		if len(word) <= p.minLength {
			continue
		}
		for _, prefix := range p.prefixes {
			if strings.HasPrefix(word, prefix) {
				out = append(out, word)
				break
			}
		}
	}
	return out
}

// HasHashtag reports whether text carries one of the tracked hashtags, case-insensitively.
func (p *Parser) HasHashtag(text string) bool {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.TrimRight(word, ".,!?;:")
		for _, tag := range p.hashtags {
			if word == tag {
				return true
			}
		}
	}
	return false
}

// ContentLength counts the runes of text without the payout address.
func ContentLength(text, address string) int {
	if address != "" {
		text = strings.Replace(text, address, "", 1)
	}
	return utf8.RuneCountInString(strings.TrimSpace(text))
}
