package engine

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/animscene/internal/analyzer"
	"github.com/ivlev/animscene/internal/director"
	"github.com/ivlev/animscene/internal/script"
	"github.com/ivlev/animscene/internal/source"
	"github.com/ivlev/animscene/internal/system"
	"github.com/ivlev/animscene/internal/vector"
)

// GenerateScript writes a slideshow script for every page of the input PDF
// or image folder: each page is fitted to the canvas, toured along its
// detected regions and replaced by the next one after a fade. The written
// path is returned.
func (p *Project) GenerateScript() (string, error) {
	cfg := p.Config
	log := p.logger()
	out := p.out()
	fmt.Fprintln(out, "[*] Режим генерации сценария...")

	src, err := source.Open(cfg.InputPath)
	if err != nil {
		return "", fmt.Errorf("ошибка инициализации источника: %w", err)
	}
	defer src.Close()

	pageCount := src.PageCount()
	if pageCount == 0 {
		return "", fmt.Errorf("источник не содержит страниц/кадров")
	}

	det, err := analyzer.NewDetector(cfg.Detector)
	if err != nil {
		return "", err
	}
	dir := director.NewDirector(cfg.Width, cfg.Height)

	total := cfg.PageDuration * float64(pageCount)
	if cfg.AudioPath != "" {
		if audio, err := system.GetAudioDuration(cfg.AudioPath); err == nil {
			total = audio
			fmt.Fprintf(out, "[*] Длительность установлена по аудио: %.2fs\n", total)
		} else {
			fmt.Fprintf(out, "[!] Не удалось получить длительность аудио: %v\n", err)
		}
	}
	durations := pageDurations(total, cfg.FadeDuration, pageCount, rand.New(rand.NewSource(time.Now().UnixNano())))

	ref, err := filepath.Abs(cfg.InputPath)
	if err != nil {
		return "", err
	}

	sc := &script.Script{
		Version: "1.0",
		Canvas:  script.Canvas{Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS, Background: cfg.Background},
	}
	for i := 0; i < pageCount; i++ {
		fmt.Fprintf(out, "[*] Анализ страницы %d/%d...\n", i+1, pageCount)
		id := i + 1

		img, err := src.RenderPage(i, cfg.DPI)
		if err != nil {
			return "", fmt.Errorf("страница %d: %w", id, err)
		}
		x, y, w, h := fit(float64(img.Bounds().Dx()), float64(img.Bounds().Dy()), float64(cfg.Width), float64(cfg.Height))
		pic := vector.NewPicture(id, img, x, y, w, h)

		regions, err := det.Detect(img)
		if err != nil {
			// продолжаем без регионов: страница просто показывается целиком
			log.Warn("page analysis failed", zap.Int("page", id), zap.Error(err))
		}
		keyframes := dir.Tour(pic, regions, durations[i])

		sc.Objects = append(sc.Objects, script.ObjectSpec{
			ID:     id,
			Kind:   script.KindPicture,
			Hidden: i > 0,
			X:      x,
			Y:      y,
			W:      w,
			H:      h,
			Source: fmt.Sprintf("%s#%d", ref, id),
		})

		if i > 0 {
			sc.Timeline = append(sc.Timeline, script.Step{Add: []int{id}})
			if cfg.FadeDuration > 0 {
				sc.Timeline = append(sc.Timeline, script.Step{Play: &script.PlaySpec{
					Duration: cfg.FadeDuration,
					Animations: []script.AnimationSpec{
						{Target: id, FadeIn: true},
						{Target: id - 1, FadeOut: true},
					},
				}})
			}
			sc.Timeline = append(sc.Timeline, script.Step{Remove: []int{id - 1}})
		}

		sc.Timeline = append(sc.Timeline, script.Step{Play: &script.PlaySpec{
			Duration:   durations[i],
			Rate:       "linear",
			Animations: []script.AnimationSpec{{Target: id, Keyframes: keyframes}},
		}})
	}

	if err := sc.Validate(); err != nil {
		return "", err
	}

	outputPath := cfg.ScriptOutput
	if outputPath == "" {
		outputPath = script.GenerateScriptPath("scripts")
	}
	if err := script.WriteScript(sc, outputPath); err != nil {
		return "", err
	}
	fmt.Fprintf(out, "[+++] Успех! Сценарий сохранен: %s\n", outputPath)
	return outputPath, nil
}

// fit centres a w x h page in a cw x ch canvas, keeping its aspect.
func fit(w, h, cw, ch float64) (x, y, fw, fh float64) {
	scale := math.Min(cw/w, ch/h)
	fw, fh = w*scale, h*scale
	return (cw - fw) / 2, (ch - fh) / 2, fw, fh
}

// pageDurations spreads the time left after the fades over count pages. Each
// page differs from the previous one by up to 15% so the slideshow does not
// tick like a metronome.
func pageDurations(total, fade float64, count int, r *rand.Rand) []float64 {
	if count <= 0 {
		return nil
	}
	totalClips := total - float64(count-1)*fade
	if totalClips <= 0 {
		totalClips = total
	}
	base := totalClips / float64(count)

	durations := make([]float64, count)
	durations[0] = base * (1 + (r.Float64()*0.3 - 0.15))
	for i := 1; i < count; i++ {
		durations[i] = durations[i-1] * (1 + (r.Float64()*0.3 - 0.15))
		// клип не может быть короче перехода (с запасом)
		if durations[i] < fade*1.1 {
			durations[i] = fade * 1.1
		}
	}

	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	scale := totalClips / sum
	for i := range durations {
		durations[i] *= scale
	}
	return durations
}
