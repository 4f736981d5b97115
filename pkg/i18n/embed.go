package i18n

import "embed"

// EmbeddedLocales: fs.Sub(EmbeddedLocales, "locales") ile Load'a verilir.
//
//go:embed locales/*.json
var EmbeddedLocales embed.FS
