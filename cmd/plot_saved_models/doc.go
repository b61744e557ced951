// Package main decodes the MNIST test set with one or more saved abstaining
// models and compares them: accuracy, precision-yield, precision-recall, ROC
// and risk-coverage curves are reported per checkpoint, the precision-yield
// curve is written as JSON and every run can be recorded in a SQLite database.
//
//	plot_saved_models -config run.yaml saved/pair_baseline.json.lzw saved/pair_neg_abs.json.lzw
package main
