// Package i18n holds the user-visible message catalog. Portuguese (Brazil) is
// the reference language; English is provided for API clients that ask for it.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	InvalidURL       = "invalid_url"
	Forbidden        = "forbidden"
	NotFound         = "not_found"
	DispatchFailed   = "dispatch_failed"
	ProcessingFailed = "processing_failed"
	TextUnavailable  = "text_unavailable"
	PlaceholderTitle = "placeholder_title"
	AlreadyFinished  = "already_finished"
	InvalidBody      = "invalid_body"
	TextRequired     = "text_required"
	NameRequired     = "name_required"
	InternalError    = "internal_error"
)

var supported = []language.Tag{
	language.BrazilianPortuguese,
	language.AmericanEnglish,
}

var entries = map[string][2]string{
	InvalidURL:       {"Por favor, insira uma URL válida do YouTube", "Please enter a valid YouTube URL"},
	Forbidden:        {"Você não tem acesso a esta transcrição", "You do not have access to this transcription"},
	NotFound:         {"Transcrição não encontrada", "Transcription not found"},
	DispatchFailed:   {"Erro ao iniciar transcrição: %s", "Failed to start transcription: %s"},
	ProcessingFailed: {"Erro ao processar transcrição. Tente novamente mais tarde.", "Failed to process transcription. Please try again later."},
	TextUnavailable:  {"Transcrição não disponível", "Transcription not available"},
	PlaceholderTitle: {"Vídeo YouTube: %s", "YouTube video: %s"},
	AlreadyFinished:  {"A transcrição já foi finalizada", "The transcription has already finished"},
	InvalidBody:      {"Corpo da requisição inválido", "Invalid request body"},
	TextRequired:     {"O texto da transcrição é obrigatório", "Transcription text is required"},
	NameRequired:     {"O nome é obrigatório", "Name is required"},
	InternalError:    {"Erro interno do servidor", "Internal server error"},
}

// Catalog resolves message keys for a requested language.
type Catalog struct {
	cat      catalog.Catalog
	matcher  language.Matcher
	fallback language.Tag
}

// New builds the catalog. defaultLocale is used when a request carries no
// usable Accept-Language header; unknown locales fall back to pt-BR.
func New(defaultLocale string) *Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.BrazilianPortuguese))
	for key, texts := range entries {
		b.SetString(language.BrazilianPortuguese, key, texts[0])
		b.SetString(language.AmericanEnglish, key, texts[1])
	}

	c := &Catalog{
		cat:      b,
		matcher:  language.NewMatcher(supported),
		fallback: language.BrazilianPortuguese,
	}
	if defaultLocale != "" {
		c.fallback = c.match(defaultLocale)
	}
	return c
}

// Default returns a printer for the configured default locale.
func (c *Catalog) Default() *message.Printer {
	return message.NewPrinter(c.fallback, message.Catalog(c.cat))
}

// ForAcceptLanguage returns a printer for the best match of an Accept-Language
// header value.
func (c *Catalog) ForAcceptLanguage(header string) *message.Printer {
	if header == "" {
		return c.Default()
	}
	return message.NewPrinter(c.match(header), message.Catalog(c.cat))
}

// Tag returns the supported language matched for header value.
func (c *Catalog) Tag(header string) language.Tag {
	if header == "" {
		return c.fallback
	}
	return c.match(header)
}

func (c *Catalog) match(header string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return c.fallback
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.fallback
	}
	return supported[idx]
}
