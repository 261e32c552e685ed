// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package eventbus provides the typed NATS publish/subscribe helpers the
// pipeline services use to hand work to one another: Ingestion emits
// document.ingested, the Lesson Generator consumes it and emits
// lesson.ready, the Visualization Orchestrator and Quiz/Notes service
// each consume lesson.ready independently.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/aleutian-tutor/lessonforge/pkg/metrics"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel's TextMapCarrier so
// trace context survives a hop through the bus.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Bus wraps a *nats.Conn with the topic names every service shares.
type Bus struct {
	nc *nats.Conn
}

// Connect dials the NATS server at url (e.g. nats://127.0.0.1:4222).
func Connect(url string) (*Bus, error) {
	nc, err := nats.Connect(url, nats.RetryOnFailedConnect(true), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect: %w", err)
	}
	return &Bus{nc: nc}, nil
}

// Close closes the underlying connection without draining it first.
func (b *Bus) Close() { b.nc.Close() }

// Conn exposes the raw connection for callers that need it directly.
func (b *Bus) Conn() *nats.Conn { return b.nc }

// Publish serializes v as JSON and publishes it to subject, injecting
// trace context from ctx into the message headers and recording the
// publish in the default metrics registry.
func Publish[T any](ctx context.Context, b *Bus, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("eventbus: marshal %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	if err := b.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("eventbus: publish %s: %w", subject, err)
	}
	if metrics.Default != nil {
		metrics.Default.RecordPublish(subject)
	}
	return nil
}

// Subscribe registers handler on a queue group so that, across every
// replica of a consuming service, each message of type T is delivered
// to exactly one process. Malformed payloads are dropped rather than
// retried, since retrying a message neither side can parse never
// succeeds.
func Subscribe[T any](b *Bus, subject, queueGroup string, handler func(context.Context, T) error) (*nats.Subscription, error) {
	return b.nc.QueueSubscribe(subject, queueGroup, func(msg *nats.Msg) {
		var v T
		outcome := "consumed"
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			outcome = "malformed"
			if metrics.Default != nil {
				metrics.Default.RecordConsume(subject, outcome)
			}
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		if err := handler(ctx, v); err != nil {
			outcome = "error"
		}
		if metrics.Default != nil {
			metrics.Default.RecordConsume(subject, outcome)
		}
	})
}
