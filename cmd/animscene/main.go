package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/animscene/internal/animation"
	"github.com/ivlev/animscene/internal/config"
	"github.com/ivlev/animscene/internal/engine"
	"github.com/ivlev/animscene/internal/logging"
	"github.com/ivlev/animscene/internal/script"
	"github.com/ivlev/animscene/internal/surface"
	"github.com/ivlev/animscene/internal/system"
)

// shutdown releases the signal handler and flushes buffered log entries.
func shutdown(stop context.CancelFunc, logger *zap.Logger) {
	stop()
	_ = logger.Sync()
}

// version задается при сборке: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	if err := system.InitResourceLimits(); err != nil {
		log.Printf("[!] Лимиты не изменены: %v", err)
	}

	// Создаем нужные директории, если их нет
	for _, d := range []string{"input/audio", "input/pdf", "scripts", "output"} {
		_ = os.MkdirAll(d, 0o755)
	}

	def := config.Default()
	configPtr := flag.String("config", "", "YAML-файл настроек (флаги имеют приоритет)")
	scriptPtr := flag.String("script", "", "Сценарий YAML (по умолчанию: самый свежий в scripts/)")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	modePtr := flag.String("mode", def.Mode, "Режим: video (файл) или live (просмотр в браузере / MQTT)")
	widthPtr := flag.Int("width", def.Width, "Ширина")
	heightPtr := flag.Int("height", def.Height, "Высота")
	fpsPtr := flag.Int("fps", def.FPS, "FPS")
	presetPtr := flag.String("preset", "", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	backgroundPtr := flag.String("background", def.Background, "Цвет фона, #rrggbb")
	picturesPtr := flag.String("pictures", "", "Папка для относительных ссылок на картинки (по умолчанию: папка сценария)")
	dpiPtr := flag.Int("dpi", def.DPI, "DPI для страниц PDF")
	audioPtr := flag.String("audio", "", "Путь к аудио (по умолчанию: самый свежий файл в input/audio/)")
	fadePtr := flag.Float64("fade", def.FadeDuration, "Затемнение в начале и в конце видео (сек)")
	qualityPtr := flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	encoderPtr := flag.String("encoder", "", "Кодек: libx264, h264_nvenc, h264_videotoolbox (по умолчанию: автоопределение)")
	keepPtr := flag.Bool("keep-segments", false, "Не удалять сегменты после сборки")
	listenPtr := flag.String("listen", def.Listen, "Адрес веб-просмотра в режиме live (пусто - отключить)")
	previewPtr := flag.Int("preview-width", def.PreviewWidth, "Ширина кадров для просмотра")
	mqttURLPtr := flag.String("mqtt-url", "", "MQTT брокер, например tcp://localhost:1883")
	mqttTopicPtr := flag.String("mqtt-topic", "animscene/frames", "MQTT топик для кадров")
	generatePtr := flag.Bool("generate", false, "Сгенерировать сценарий из PDF или папки с изображениями")
	inputPtr := flag.String("input", "", "PDF или папка с изображениями для -generate (по умолчанию: самый свежий PDF в input/pdf/)")
	scriptOutPtr := flag.String("script-output", "", "Куда сохранить сгенерированный сценарий (по умолчанию: scripts/)")
	pageDurationPtr := flag.Float64("page-duration", def.PageDuration, "Длительность показа одной страницы в секундах")
	detectorPtr := flag.String("detector", "", "Детектор регионов: contrast")
	logLevelPtr := flag.String("log-level", def.LogLevel, "Уровень логов: debug, info, warn, error")
	debugPtr := flag.Bool("debug", false, "Читаемые логи для разработки")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности и записать benchmark.log")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Использование: %s [флаги]\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nФункции плавности для rate в сценарии:\n  %s\n",
			strings.Join(animation.RateNames(), ", "))
	}
	flag.Parse()

	cfg := def
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка чтения настроек: %v", err)
		}
		cfg = loaded
	}

	var mqttURL, mqttTopic string
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "script":
			cfg.ScriptPath = *scriptPtr
		case "output":
			cfg.OutputVideo = *outputPtr
		case "mode":
			cfg.Mode = *modePtr
		case "width":
			cfg.Width = *widthPtr
		case "height":
			cfg.Height = *heightPtr
		case "fps":
			cfg.FPS = *fpsPtr
		case "preset":
			cfg.Preset = *presetPtr
		case "background":
			cfg.Background = *backgroundPtr
		case "pictures":
			cfg.PicturesDir = *picturesPtr
		case "dpi":
			cfg.DPI = *dpiPtr
		case "audio":
			cfg.AudioPath = *audioPtr
		case "fade":
			cfg.FadeDuration = *fadePtr
		case "quality":
			cfg.Quality = *qualityPtr
		case "encoder":
			cfg.VideoEncoder = *encoderPtr
		case "keep-segments":
			cfg.KeepSegments = *keepPtr
		case "listen":
			cfg.Listen = *listenPtr
		case "preview-width":
			cfg.PreviewWidth = *previewPtr
		case "mqtt-url":
			mqttURL = *mqttURLPtr
		case "mqtt-topic":
			mqttTopic = *mqttTopicPtr
		case "input":
			cfg.InputPath = *inputPtr
		case "script-output":
			cfg.ScriptOutput = *scriptOutPtr
		case "page-duration":
			cfg.PageDuration = *pageDurationPtr
		case "detector":
			cfg.Detector = *detectorPtr
		case "log-level":
			cfg.LogLevel = *logLevelPtr
		case "debug":
			cfg.Debug = *debugPtr
		case "stats":
			cfg.ShowStats = *statsPtr
		}
	})
	if mqttURL != "" {
		if cfg.MQTT == nil {
			cfg.MQTT = &surface.MQTTConfig{Topic: *mqttTopicPtr}
		}
		cfg.MQTT.URL = mqttURL
	}
	if mqttTopic != "" && cfg.MQTT != nil {
		cfg.MQTT.Topic = mqttTopic
	}
	cfg.BuildVersion = version

	if err := cfg.ApplyPreset(); err != nil {
		log.Fatalf("[-] %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatalf("[-] Ошибка логгера: %v", err)
	}
	defer logger.Sync()

	// Обработка аудио
	if cfg.AudioPath == "" {
		if latest, err := system.FindLatest("input/audio", system.AudioExts...); err == nil {
			cfg.AudioPath = latest
			fmt.Printf("[*] Выбрано аудио: %s\n", cfg.AudioPath)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// log.Fatalf skips deferred calls, so flush the logger first.
	fatal := func(format string, args ...any) {
		shutdown(stop, logger)
		log.Fatalf(format, args...)
	}

	project := engine.NewProject(cfg, logger)

	if *generatePtr {
		if cfg.InputPath == "" {
			latest, err := system.FindLatest("input/pdf", ".pdf")
			if err != nil {
				fatal("[-] Ошибка: %v. Положите PDF в input/pdf/", err)
			}
			cfg.InputPath = latest
			fmt.Printf("[*] Выбран файл: %s\n", cfg.InputPath)
		}
		if _, err := project.GenerateScript(); err != nil {
			fatal("[-] Ошибка генерации сценария: %v", err)
		}
		return
	}

	if cfg.ScriptPath == "" {
		latest, err := script.FindLatestScript("scripts")
		if err != nil {
			fatal("[-] Ошибка: %v. Положите сценарий в scripts/ или запустите с -generate", err)
		}
		cfg.ScriptPath = latest
		fmt.Printf("[*] Выбран сценарий: %s\n", cfg.ScriptPath)
	}

	if cfg.Mode == config.ModeVideo {
		if cfg.OutputVideo == "" {
			cfg.OutputVideo = outputName(cfg.ScriptPath)
		}
		if cfg.VideoEncoder == "" {
			cfg.VideoEncoder = system.GetBestH264Encoder()
			if cfg.VideoEncoder != "libx264" {
				fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", cfg.VideoEncoder)
			}
		}
	}

	if _, err := project.Run(ctx); err != nil {
		logger.Error("project failed", zap.Error(err))
		fatal("[-] Ошибка проекта: %v", err)
	}

	if cfg.Mode == config.ModeVideo {
		fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
	} else {
		fmt.Println("[+++] Сценарий воспроизведен")
	}
}

func outputName(scriptPath string) string {
	baseName := filepath.Base(scriptPath)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}
