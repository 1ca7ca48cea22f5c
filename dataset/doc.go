// Package dataset holds tabular data as a Frame of named, equal-length
// columns and loads it from CSV, whitespace-separated text, xlsx workbooks
// and zip archives served over HTTP.
//
// Columns are Numeric (float64, NaN for missing) or Categorical (string
// levels, "" for missing). Loaders infer the kind per column:
//
//	f, err := dataset.ReadTable(r, &dataset.TableOptions{
//		Names:    []string{"date", "nf", "ff"},
//		SkipRows: 1,
//	})
//	series, err := f.Series("ff", "date")
package dataset
