// Command rdcompare builds a rate-distortion comparison between a recorded
// model evaluation and the reference codecs stored in a benchmark
// database, then writes the figure to a directory or posts it to the
// plotting sidecar.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/lidq92/compresstrain/benchmark"
	"github.com/lidq92/compresstrain/loggers"
	"github.com/lidq92/compresstrain/plot"
)

func main() {
	dbPath := flag.String("db", "benchmarks.db", "path to the benchmark sqlite database")
	dataset := flag.String("dataset", "kodak", "evaluation dataset name")
	codecs := flag.String("codecs", "jpeg", "comma-separated reference codec names")
	name := flag.String("name", "model", "current model name")
	epoch := flag.Int("epoch", 0, "epoch of the recorded evaluation")
	loss := flag.Float64("loss", 0, "recorded rate-distortion loss")
	bpp := flag.Float64("bpp", 0, "measured bitrate in bits per pixel")
	psnr := flag.Float64("psnr", 0, "measured PSNR in dB")
	hover := flag.String("hover", "name,epoch,loss", "comma-separated leading table columns")
	outDir := flag.String("out", ".", "directory receiving the figure JSON")
	sidecarURL := flag.String("sidecar", "", "plotting sidecar base URL; posts the figure when set")
	flag.Parse()

	store, err := benchmark.Open(*dbPath)
	if err != nil {
		log.Fatalf("open benchmark store: %v", err)
	}
	defer store.Close()

	reference, err := store.SeriesSet(*dataset, splitList(*codecs))
	if err != nil {
		log.Fatalf("load reference curves: %v", err)
	}

	current := plot.RDPoint{Name: *name, Epoch: *epoch, Loss: *loss, BPP: *bpp, PSNR: *psnr}
	table, err := plot.BuildComparison(reference, current, splitList(*hover))
	if err != nil {
		log.Fatalf("build comparison: %v", err)
	}

	fig := plot.PlotRD(reference, current, nil)
	fig.Title = fmt.Sprintf("RD curves (%s)", *dataset)
	fig.Table = table
	figName := fmt.Sprintf("rd-curves-%s-psnr", *dataset)

	if *sidecarURL != "" {
		config := loggers.DefaultSidecarConfig()
		config.BaseURL = *sidecarURL
		sink := loggers.NewSidecar(config)
		sink.Enable()
		if err := sink.CheckHealth(); err != nil {
			log.Fatalf("sidecar unavailable: %v", err)
		}
		if err := sink.LogFigure(figName, fig); err != nil {
			log.Fatalf("post figure: %v", err)
		}
		fmt.Printf("Posted %s to %s\n", figName, *sidecarURL)
		return
	}

	sink, err := loggers.NewRunDir(*outDir)
	if err != nil {
		log.Fatalf("open output directory: %v", err)
	}
	if err := sink.LogFigure(figName, fig); err != nil {
		log.Fatalf("write figure: %v", err)
	}
	fmt.Printf("Wrote %s.json to %s (%d comparison rows)\n", figName, *outDir, len(table.Rows))
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
