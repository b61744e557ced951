package main

import "context"
import "flag"
import "fmt"
import "log"
import "math/rand"
import "path/filepath"
import "strings"

import "github.com/neurlang/abstain/config"
import "github.com/neurlang/abstain/datasets/mnist"
import "github.com/neurlang/abstain/decode"
import "github.com/neurlang/abstain/evaluate"
import "github.com/neurlang/abstain/net/linear"
import "github.com/neurlang/abstain/parallel"
import "github.com/neurlang/abstain/record"
import "github.com/neurlang/abstain/store"

// curveName gives each checkpoint its own curve file when several are compared.
func curveName(base, checkpoint string, many bool) string {
	if !many {
		return base
	}
	ext := filepath.Ext(base)
	stem := filepath.Base(checkpoint)
	stem = strings.TrimSuffix(stem, ".json.lzw")
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	return strings.TrimSuffix(base, ext) + "." + stem + ext
}

func main() {
	configPath := flag.String("config", "", "YAML run configuration")
	dataDir := flag.String("data", "", "directory with the MNIST gzip idx files (overrides config)")
	db := flag.String("db", "", "SQLite database recording each run (overrides config)")
	flag.Bool("pgo", false, "collect a CPU profile into default.pgo")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *db != "" {
		cfg.Output.DB = *db
	}
	checkpoints := cfg.Checkpoints
	if flag.NArg() > 0 {
		checkpoints = flag.Args()
	}
	if len(checkpoints) == 0 {
		log.Fatalf("no checkpoints given")
	}

	decoder, err := cfg.Decoder()
	if err != nil {
		log.Fatalf("decoder: %v", err)
	}
	objective, err := cfg.Objective()
	if err != nil {
		log.Fatalf("%v", err)
	}

	testset, err := mnist.Load(cfg.Data.Dir, mnist.Infer)
	if err != nil {
		log.Fatalf("mnist: %v", err)
	}
	if sig := cfg.Data.Significance; sig > 0 && sig < 100 {
		testset.Shuffle(rand.New(rand.NewSource(cfg.Seed)))
		testset = testset.Head(evaluate.SampleSize(testset.Len(), sig))
	}
	log.Printf("%d test images, %d workers on %s", testset.Len(), parallel.Workers(), parallel.Describe())

	var runs *store.Store
	if cfg.Output.DB != "" {
		if runs, err = store.NewStore(cfg.Output.DB); err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		defer runs.Close()
	}

	ctx := context.Background()
	for _, name := range checkpoints {
		net, err := linear.ReadCompressedWeightsFromFile(name)
		if err != nil {
			log.Fatalf("checkpoint %s: %v", name, err)
		}
		if net.In() != mnist.ImgSize*mnist.ImgSize {
			log.Fatalf("checkpoint %s: input width %d", name, net.In())
		}
		if decoder.Abstain && !net.Abstain {
			log.Fatalf("checkpoint %s has no abstention class", name)
		}

		recs, err := decode.Collect(decoder.Decode(net, testset.Batches(cfg.Data.BatchSize, cfg.Data.Normalize, "t10k")))
		if err != nil {
			log.Fatalf("decode %s: %v", name, err)
		}
		rep, err := evaluate.NewReport(recs)
		if err != nil {
			log.Fatalf("evaluate %s: %v", name, err)
		}

		fmt.Printf("[%s] accuracy %.4f coverage %.4f pr_auc %.4f roc_auc %.4f capacity %.4f\n",
			name, rep.Summary.Accuracy(), rep.Summary.Coverage(), rep.PR.Area, rep.ROC.Area, rep.RiskCoverage.Area)
		for _, t := range rep.PY.Sorted() {
			fmt.Printf("  threshold %3d precision %.4f yield %.4f\n", t, rep.PY[t].Precision, rep.PY[t].Yield)
		}

		curveFile := curveName(cfg.Output.CurveFile, name, len(checkpoints) > 1)
		if err := evaluate.WritePYCurve(curveFile, rep.PY); err != nil {
			log.Fatalf("write %s: %v", curveFile, err)
		}
		if cfg.Output.Records != "" {
			recFile := curveName(cfg.Output.Records, name, len(checkpoints) > 1)
			if err := record.WriteFile(recFile, recs); err != nil {
				log.Fatalf("write %s: %v", recFile, err)
			}
		}
		if runs != nil {
			id, err := runs.SaveRun(ctx, name, objective.String(), rep, recs)
			if err != nil {
				log.Fatalf("save run %s: %v", name, err)
			}
			log.Printf("stored run %s", id)
		}
	}
}
