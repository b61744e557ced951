package main

import "context"
import "flag"
import "fmt"
import "log"

import "github.com/neurlang/abstain/config"
import "github.com/neurlang/abstain/evaluate"
import "github.com/neurlang/abstain/record"
import "github.com/neurlang/abstain/store"

func main() {
	configPath := flag.String("config", "", "YAML run configuration")
	records := flag.String("records", "", "JSON-lines prediction records")
	curve := flag.String("curve", "", "precision-yield curve output (overrides config)")
	name := flag.String("name", "", "run name stored with the results")
	flag.Parse()

	if *records == "" {
		log.Fatalf("-records is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	objective, err := cfg.Objective()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *curve != "" {
		cfg.Output.CurveFile = *curve
	}
	if *name == "" {
		*name = *records
	}

	recs, err := record.ReadFile(*records)
	if err != nil {
		log.Fatalf("read %s: %v", *records, err)
	}
	if cfg.Decode.Threshold > 0 {
		for i := range recs {
			recs[i] = recs[i].At(cfg.Decode.Threshold)
		}
	}

	rep, err := evaluate.NewReport(recs)
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}
	s := rep.Summary
	fmt.Println("correct, confident, total:", s.Correct, s.Confident, s.Total)
	fmt.Printf("accuracy %.4f yield %.4f\n", s.Accuracy(), s.Yield())
	fmt.Printf("pr_auc %.4f roc_auc %.4f capacity %.4f\n", rep.PR.Area, rep.ROC.Area, rep.RiskCoverage.Area)

	if err := evaluate.WritePYCurve(cfg.Output.CurveFile, rep.PY); err != nil {
		log.Fatalf("write %s: %v", cfg.Output.CurveFile, err)
	}

	if cfg.Output.DB != "" {
		runs, err := store.NewStore(cfg.Output.DB)
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		defer runs.Close()
		id, err := runs.SaveRun(context.Background(), *name, objective.String(), rep, recs)
		if err != nil {
			log.Fatalf("save run: %v", err)
		}
		log.Printf("stored run %s", id)
	}
}
