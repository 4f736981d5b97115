// Package logger, zerolog tabanlı singleton structured logger sağlar.
//
// Uygulama başlangıcında bir kez Init ile kurulur, sonra her yerde Get ile
// alınır. Component'ler kendi alt logger'larını For ile türetir:
//
//	log := logger.For("ws")
//	log.Info().Str("user_id", id).Msg("client connected")
//
//	TRACE (-1) → DEBUG (0) → INFO (1) → WARN (2) → ERROR (3)
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options, logger davranışını belirler.
type Options struct {
	// Level: trace, debug, info, warn, error. Boş veya tanınmayan → info.
	Level string
	// Pretty: renkli console çıktısı (development). Production'da false → saf JSON.
	Pretty bool
	// Output: log'ların yazılacağı writer. Varsayılan os.Stdout.
	Output io.Writer
}

var (
	instance    zerolog.Logger
	once        sync.Once
	initialized bool
)

// Init, singleton logger'ı kurar. Birden fazla çağrılabilir;
// sadece ilk çağrı etkilidir (sync.Once).
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		if opts.Pretty {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		}

		lvl := ParseLevel(opts.Level)
		zerolog.SetGlobalLevel(lvl)

		instance = zerolog.New(out).
			Level(lvl).
			With().
			Timestamp().
			Logger()

		initialized = true
	})
	return instance
}

// Get, singleton logger'ı döner. Init çağrılmadıysa Nop logger döner;
// testlerde Init zorunlu olmasın diye panic yerine sessiz kalır.
func Get() zerolog.Logger {
	if !initialized {
		return zerolog.Nop()
	}
	return instance
}

// For, "component" alanı eklenmiş bir alt logger döner.
func For(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// Reset, singleton'ı sıfırlar. Sadece testler için.
func Reset() {
	once = sync.Once{}
	instance = zerolog.Logger{}
	initialized = false
}

// ParseLevel, string'i zerolog.Level'a çevirir.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
