package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/2beens/trainor/pkg"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "trainor.log"

type LoggerSetupParams struct {
	// LogsPath is a directory or a *.log file; empty means stdout only
	LogsPath         string
	LogToStdout      bool
	LogLevel         string
	LogFormatJSON    bool
	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
}

// Setup configures the global logrus logger. The returned func flushes
// buffered sentry events and should be called on shutdown.
func Setup(params LoggerSetupParams) (flush func()) {
	flush = func() {}

	if params.LogFormatJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetLevel(GetLevel(params.LogLevel))

	if params.SentryEnabled {
		if params.SentryDSN == "" {
			log.Warnln("sentry enabled, but SENTRY_DSN not set")
		} else if err := sentry.Init(sentry.ClientOptions{
			Environment:      params.Environment,
			Dsn:              params.SentryDSN,
			TracesSampleRate: 1.0,
			ServerName:       params.SentryServerName,
		}); err != nil {
			log.Errorf("sentry init: %s", err)
		} else {
			log.AddHook(NewSentryHook([]log.Level{
				log.PanicLevel,
				log.FatalLevel,
				log.ErrorLevel,
			}))
			flush = func() {
				if ok := sentry.Flush(5 * time.Second); !ok {
					log.Warnln("sentry flush timed out")
				}
			}
			log.Infoln("sentry set up successfully")
		}
	}

	log.SetOutput(output(params.LogsPath, params.LogToStdout))
	return flush
}

func output(logsPath string, toStdout bool) io.Writer {
	if logsPath == "" {
		return os.Stdout
	}

	fileName := logsPath
	if !strings.HasSuffix(fileName, ".log") {
		fileName = filepath.Join(logsPath, logFileName)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    20, // megabytes
		MaxBackups: 10,
		MaxAge:     90, // days
		Compress:   true,
	}

	if toStdout {
		return pkg.NewCombinedWriter(os.Stdout, fileWriter)
	}
	return fileWriter
}

func GetLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	case "info":
		return log.InfoLevel
	case "trace":
		return log.TraceLevel
	case "warn":
		return log.WarnLevel
	default:
		return log.TraceLevel
	}
}
