// Command seed-models generates a synthetic student dataset and trains a
// local model bundle so the service has artifacts to serve during
// development. Not for production use; the data is random.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/edustack/ai-service/internal/training"
	"github.com/edustack/ai-service/internal/utils"
)

func main() {
	var (
		outDir  = flag.String("out", "models", "output directory for model artifacts")
		version = flag.String("version", "v2.0.0", "model version to seed")
		rows    = flag.Int("rows", 400, "number of synthetic students")
		seed    = flag.Int64("seed", 7, "random seed for the synthetic dataset")
	)
	flag.Parse()

	logger := utils.NewLogger("info", false)

	csvPath := filepath.Join(os.TempDir(), "seed-students.csv")
	if err := writeSyntheticCSV(csvPath, *rows, *seed); err != nil {
		logger.Error("failed to write synthetic dataset", slog.Any("error", err))
		os.Exit(1)
	}
	defer os.Remove(csvPath)

	result, err := training.Run(logger, training.Options{
		CSVPath:    csvPath,
		Separator:  ';',
		OutDir:     *outDir,
		MetricsDir: filepath.Join(*outDir, "..", "metrics"),
		ModelName:  "grades",
		Version:    *version,
	})
	if err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("seeded grades %s in %s (r2=%.3f mae=%.3f)\n",
		*version, *outDir, result.Metrics.R2, result.Metrics.MAE)
}

func writeSyntheticCSV(path string, rows int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))
	genders := []string{"M", "F"}
	professors := []string{"Gomez", "Suarez", "Molina"}
	yesNo := []string{"Si", "No"}

	var b strings.Builder
	b.WriteString("edad;AsistenciaAM1;VecesRecursadaAM1;Parcial1AM1;Parcial2AM1;" +
		"Recuperatorio1AM1;Recuperatorio2AM1;PromedioNotasColegio;AniosUniversidad;" +
		"Genero;ProfesorAM1;ColegioTecnico;AyudaFinanciera;Final1AM1\n")

	for i := 0; i < rows; i++ {
		edad := 18 + rng.Intn(12)
		asistencia := 40 + rng.Float64()*60
		recursada := rng.Intn(3)
		p1 := 1 + rng.Float64()*9
		p2 := 1 + rng.Float64()*9
		colegio := 4 + rng.Float64()*6
		anios := rng.Intn(6)
		// Final correlates with partials so the model has signal to learn.
		final := clamp(0.45*p1+0.45*p2+rng.NormFloat64(), 1, 10)

		fmt.Fprintf(&b, "%d;%.1f;%d;%.2f;%.2f;;;%.2f;%d;%s;%s;%s;%s;%.2f\n",
			edad, asistencia, recursada, p1, p2, colegio, anios,
			genders[rng.Intn(len(genders))],
			professors[rng.Intn(len(professors))],
			yesNo[rng.Intn(len(yesNo))],
			yesNo[rng.Intn(len(yesNo))],
			final,
		)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
