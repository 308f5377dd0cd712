// Package job defines the option vocabulary attached to every job.
//
// Default job options are kept on [keel.Config] as a string-keyed map so
// they round-trip through the JSON payload codec unchanged; [OptionKey] and
// [Options] give Go callers typed names for the well-known entries:
//
//	opts := job.NewOptions(job.WithQueue("critical"), job.WithRetry(5))
//	keel.SetDefaultJobOptions(cfg, opts.Map())
package job
