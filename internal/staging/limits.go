package staging

// MB is one mebibyte; upload limits are expressed in it.
const MB int64 = 1 << 20

// Limits are the per-operation constraints checked before network I/O.
type Limits struct {
	MinFiles      int
	MaxFiles      int   // 0 means unbounded
	MaxTotalBytes int64 // 0 means unchecked
	UploadCap     int64 // per-file cap enforced while staging
	RequirePages  bool  // split: pages unless split_mode=all

	Messages LimitMessages
}

// LimitMessages are the client-facing texts for each violation.
type LimitMessages struct {
	Missing       string // no file at all; falls back to TooFew
	TooFew        string
	TooMany       string
	TooLarge      string
	PagesRequired string
}

// Check validates the staged files against l and the named option fields,
// the ones the operation forwards. It never touches file contents.
func (l Limits) Check(files []StagedFile, opts Options, fields ...string) error {
	n := len(files)
	switch {
	case n == 0 && l.Messages.Missing != "":
		return Invalid(l.Messages.Missing)
	case n < l.MinFiles:
		return Invalid(l.Messages.TooFew)
	case l.MaxFiles > 0 && n > l.MaxFiles:
		return Invalid(l.Messages.TooMany)
	}

	if l.MaxTotalBytes > 0 {
		var total int64
		for _, f := range files {
			total += f.SizeBytes
		}
		if total > l.MaxTotalBytes {
			return Invalid(l.Messages.TooLarge)
		}
	}

	if l.RequirePages && opts.Pages == "" && opts.EffectiveSplitMode() != SplitAll {
		return Invalid(l.Messages.PagesRequired)
	}

	if len(fields) == 0 {
		return nil
	}
	return opts.Validate(fields...)
}
