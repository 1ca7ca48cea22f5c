// Package timeseries provides time series data structures and utilities.
//
// The Series type holds ordered float64 observations with optional
// timestamps. Missing observations are represented by NaN and are skipped by
// the summary statistics; state-space models treat them as missing periods.
//
// # Creating a Series
//
//	values := []float64{100, 102, 105, 103, 108, 110}
//	series := timeseries.New(values)
//
//	// Yearly data starting in 1970
//	annual := timeseries.NewAnnual(1970, values)
//
// Tabular sources (CSV files, whitespace tables) are read with the dataset
// package, which hands out columns as a Series.
//
// # Basic Statistics
//
//	mean := series.Mean()
//	std := series.Std()       // sample (n-1)
//	pstd := series.PopStd()   // population (n)
//
// # Transformations
//
//	diff := series.Diff()
//	logged := series.Log()
//	subset := series.Slice(10, 50)
package timeseries
