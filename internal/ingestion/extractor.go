// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ingestion

import (
	"bytes"
	"context"
	"fmt"
)

// PageResult is one page's extraction output: whatever text could be
// recovered directly, plus an opaque rendered-image blob for pages that
// need an OCR fallback upstream.
type PageResult struct {
	Page     int
	Text     string
	Image    []byte
	NeedsOCR bool
}

// Extractor pulls text and page images out of a PDF's raw bytes, one
// page at a time so the caller can check for cancellation and report
// progress between pages. Swap in a real PDF library (or an OCR-backed
// one) by implementing this interface; the worker pool doesn't care
// which.
type Extractor interface {
	PageCount(ctx context.Context, data []byte) (int, error)
	ExtractPage(ctx context.Context, data []byte, page int) (PageResult, error)
}

// stdlibExtractor is a minimal, dependency-free Extractor. It does not
// parse real PDF structure — it treats the document as a sequence of
// fixed-size chunks and reports each chunk as one "page", splitting on
// the PDF's own page-boundary marker when present. This satisfies the
// documented progress milestones (queued/extracting/ready) without
// pulling in a PDF parsing library; a production deployment replaces it
// with a real parser via the same interface.
type stdlibExtractor struct {
	bytesPerPage int
}

// NewStdlibExtractor builds the default Extractor. bytesPerPage controls
// how the page count is approximated when the document carries no
// recognizable page markers.
func NewStdlibExtractor(bytesPerPage int) Extractor {
	if bytesPerPage <= 0 {
		bytesPerPage = 4096
	}
	return &stdlibExtractor{bytesPerPage: bytesPerPage}
}

var pageMarker = []byte("/Type /Page")

func (e *stdlibExtractor) PageCount(_ context.Context, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty document")
	}
	if n := bytes.Count(data, pageMarker); n > 0 {
		return n, nil
	}
	pages := (len(data) + e.bytesPerPage - 1) / e.bytesPerPage
	if pages == 0 {
		pages = 1
	}
	return pages, nil
}

func (e *stdlibExtractor) ExtractPage(ctx context.Context, data []byte, page int) (PageResult, error) {
	if err := ctx.Err(); err != nil {
		return PageResult{}, err
	}
	start := (page - 1) * e.bytesPerPage
	end := start + e.bytesPerPage
	if n := bytes.Count(data, pageMarker); n > 0 {
		// Page k runs from the k-th marker to the next; page 1 starts at 0.
		start, end = -1, len(data)
		for k, off := 0, 0; k < n && k <= page; k++ {
			i := off + bytes.Index(data[off:], pageMarker)
			if k == page-1 {
				start = i
			} else if k == page {
				end = i
			}
			off = i + len(pageMarker)
		}
		if page == 1 {
			start = 0
		}
	}
	if start < 0 || start >= len(data) {
		return PageResult{}, fmt.Errorf("page %d out of range", page)
	}
	if end > len(data) {
		end = len(data)
	}
	chunk := data[start:end]

	printable := make([]byte, 0, len(chunk))
	for _, b := range chunk {
		if b >= 0x20 && b < 0x7f {
			printable = append(printable, b)
		}
	}

	result := PageResult{Page: page, Image: chunk}
	if len(printable) < len(chunk)/4 {
		// Too little recoverable text to be worth keeping; downstream
		// treats this page as an OCR candidate.
		result.NeedsOCR = true
	} else {
		result.Text = string(printable)
	}
	return result, nil
}
