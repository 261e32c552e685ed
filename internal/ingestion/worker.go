// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/eventbus"
)

// Progress milestones, matched against the caller's expectations when
// polling status(document_id).
const (
	progressQueued        = 10
	progressTextExtracted = 30
	progressImages        = 50
	progressOCRComplete   = 80
	progressDone          = 100
)

// job is one document queued for extraction.
type job struct {
	documentID string
}

// Pool is a bounded set of goroutines draining a buffered job queue, one
// document at a time per worker, checking for cancellation between
// pages so a stop() request is bounded by a single page's work.
type Pool struct {
	store     *docstore.Store
	bus       *eventbus.Bus
	extractor Extractor

	queue chan job
	wg    sync.WaitGroup
	done  chan struct{}
}

// NewPool builds a Pool draining a queue of depth queueDepth. The number
// of worker goroutines is the count passed to Start; workerCount here
// does not set it. Call Start to launch the workers and Stop to drain
// them on shutdown.
func NewPool(store *docstore.Store, bus *eventbus.Bus, extractor Extractor, workerCount, queueDepth int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueDepth <= 0 {
		queueDepth = 32
	}
	return &Pool{
		store:     store,
		bus:       bus,
		extractor: extractor,
		queue:     make(chan job, queueDepth),
		done:      make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workerCount int) {
	if workerCount <= 0 {
		workerCount = 1
	}
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
}

// Stop signals workers to exit once the document they are processing is
// finished, then waits for them to drain.
func (p *Pool) Stop() {
	close(p.done)
	p.wg.Wait()
}

// Enqueue schedules document for extraction. Returns false without
// blocking if the queue is at capacity — the caller should return
// `503 backpressure` in that case.
func (p *Pool) Enqueue(documentID string) bool {
	select {
	case p.queue <- job{documentID: documentID}:
		return true
	default:
		return false
	}
}

func (p *Pool) runWorker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case j := <-p.queue:
			p.process(j)
		}
	}
}

// process extracts one document end to end, advancing its stored
// progress at each milestone and checking CancelRequested between
// pages so a stop() request is bounded by the page currently in
// flight.
func (p *Pool) process(j job) {
	ctx := context.Background()

	doc, err := p.store.GetDocument(ctx, j.documentID)
	if err != nil {
		slog.Error("ingestion: load document for extraction failed", "document_id", j.documentID, "error", err)
		return
	}
	if doc.Status == docstore.DocumentCancelled {
		return
	}

	doc.Status = docstore.DocumentExtracting
	blob, err := p.store.GetBlob(ctx, doc.DocumentID)
	if err != nil {
		p.fail(ctx, doc, fmt.Sprintf("load blob: %v", err))
		return
	}

	pageCount, err := p.extractor.PageCount(ctx, blob)
	if err != nil {
		p.fail(ctx, doc, fmt.Sprintf("determine page count: %v", err))
		return
	}
	doc.PageCount = pageCount

	var texts []string
	var images []docstore.PageImage
	ocrPages := 0

	for page := 1; page <= pageCount; page++ {
		if p.cancelled(ctx, doc.DocumentID) {
			doc.Status = docstore.DocumentCancelled
			_ = p.store.PutDocument(ctx, doc)
			return
		}

		result, err := p.extractor.ExtractPage(ctx, blob, page)
		if err != nil {
			p.fail(ctx, doc, fmt.Sprintf("extract page %d: %v", page, err))
			return
		}

		if result.NeedsOCR {
			ocrPages++
		} else {
			texts = append(texts, result.Text)
		}

		imageKey := fmt.Sprintf("%s/page/%d", doc.DocumentID, page)
		if err := p.store.PutBlob(ctx, imageKey, result.Image); err != nil {
			p.fail(ctx, doc, fmt.Sprintf("store page image %d: %v", page, err))
			return
		}
		images = append(images, docstore.PageImage{BlobKey: imageKey, Page: page})

		if page == 1 {
			doc.Progress = progressTextExtracted
			_ = p.store.PutDocument(ctx, doc)
		}
	}

	doc.ExtractedText = joinText(texts)
	doc.PageImages = images
	doc.Progress = progressImages
	_ = p.store.PutDocument(ctx, doc)

	if ocrPages > 0 {
		doc.Progress = progressOCRComplete
		_ = p.store.PutDocument(ctx, doc)
	}

	doc.Status = docstore.DocumentReady
	doc.Progress = progressDone
	if err := p.store.PutDocument(ctx, doc); err != nil {
		slog.Error("ingestion: persist ready document failed", "document_id", doc.DocumentID, "error", err)
		return
	}

	if p.bus != nil {
		evt := eventbus.DocumentIngested{DocumentID: doc.DocumentID, OwnerUserID: doc.OwnerUserID, PageCount: doc.PageCount}
		if err := eventbus.Publish(ctx, p.bus, eventbus.SubjectDocumentIngested, evt); err != nil {
			slog.Error("ingestion: publish document.ingested failed", "document_id", doc.DocumentID, "error", err)
		}
	}
}

// cancelled re-reads the document's cancellation flag so a stop()
// request made mid-extraction is observed at the next page boundary.
func (p *Pool) cancelled(ctx context.Context, documentID string) bool {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return false
	}
	return doc.CancelRequested
}

func (p *Pool) fail(ctx context.Context, doc docstore.Document, reason string) {
	doc.Status = docstore.DocumentFailed
	doc.FailureReason = reason
	if err := p.store.PutDocument(ctx, doc); err != nil {
		slog.Error("ingestion: persist failed document failed", "document_id", doc.DocumentID, "error", err)
	}
}

func joinText(parts []string) string {
	total := 0
	for _, s := range parts {
		total += len(s) + 1
	}
	buf := make([]byte, 0, total)
	for i, s := range parts {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, s...)
	}
	return string(buf)
}
