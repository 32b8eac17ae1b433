package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field names of every entry.
const (
	MessageKey    = "msg"
	LevelKey      = "level"
	TimeKey       = "time"
	NameKey       = "logger"
	CallerKey     = "caller"
	StacktraceKey = "stacktrace"
)

const defaultTimeLayout = "2006-01-02 15:04:05.000"

// NewLogger builds a console logger on stdout at info level unless told otherwise.
func NewLogger(opts ...Option) *zap.Logger {
	b := &builder{
		level:      zapcore.InfoLevel,
		encoder:    zapcore.NewConsoleEncoder,
		writer:     os.Stdout,
		timeLayout: defaultTimeLayout,
	}
	for _, opt := range opts {
		opt(b)
	}

	core := zapcore.NewCore(
		b.encoder(b.encoderConfig()),
		zapcore.AddSync(b.writer),
		b.level,
	).With(b.fields)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(b.skip),
		zap.AddStacktrace(zapcore.DPanicLevel))
	if b.name != "" {
		l = l.Named(b.name)
	}
	return l
}

func (b *builder) encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     MessageKey,
		LevelKey:       LevelKey,
		TimeKey:        TimeKey,
		NameKey:        NameKey,
		CallerKey:      CallerKey,
		StacktraceKey:  StacktraceKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(b.timeLayout),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

type builder struct {
	name       string
	skip       int
	level      zapcore.Level
	encoder    func(zapcore.EncoderConfig) zapcore.Encoder
	timeLayout string
	writer     io.Writer
	fields     []zap.Field
}

type Option func(*builder)

// WithName names the logger, e.g. after the service running the workflows.
func WithName(name string) Option {
	return func(b *builder) {
		b.name = name
	}
}

func WithSkip(skip int) Option {
	return func(b *builder) {
		b.skip = skip
	}
}

func WithLevel(level zapcore.Level) Option {
	return func(b *builder) {
		b.level = level
	}
}

func WithEncoder(encoder func(zapcore.EncoderConfig) zapcore.Encoder) Option {
	return func(b *builder) {
		b.encoder = encoder
	}
}

// WithJSON switches to the JSON encoder.
func WithJSON() Option {
	return WithEncoder(zapcore.NewJSONEncoder)
}

func WithTimeLayout(layout string) Option {
	return func(b *builder) {
		b.timeLayout = layout
	}
}

func WithWriter(w io.Writer) Option {
	return func(b *builder) {
		b.writer = w
	}
}

// WithFile writes to a size-rotated file instead of stdout.
func WithFile(path string, maxSizeMB, maxBackups int) Option {
	return WithWriter(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	})
}

func WithFields(fields ...zap.Field) Option {
	return func(b *builder) {
		b.fields = fields
	}
}
