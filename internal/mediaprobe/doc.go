// Package mediaprobe is the media probe and admission validator (C3). It
// shells out to ffprobe, parses the JSON it prints, and turns the result
// into either a jobstore.MediaInfo record or an InvalidInput fault with a
// precise rejection reason.
package mediaprobe
