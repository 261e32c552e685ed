// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Store is the typed repository layer over DB, implementing the per-
// entity operations every lessonforge service needs. Keys are ASCII
// prefixes so range scans (badger.Iterator with Prefix) give cheap
// listing without a secondary index.
type Store struct {
	db *DB
}

// New wraps an already-open DB in a Store.
func New(db *DB) *Store { return &Store{db: db} }

func encode(v any) ([]byte, error) { return json.Marshal(v) }

func decode(b []byte, v any) error { return json.Unmarshal(b, v) }

func put(txn *badger.Txn, key string, v any) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("docstore: encode %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func get(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error { return decode(val, v) })
}

// ErrNotFound wraps badger.ErrKeyNotFound so callers never need to import
// badger directly just to check existence.
var ErrNotFound = badger.ErrKeyNotFound

// =============================================================================
// Users
// =============================================================================

func userKey(userID string) string    { return "user:" + userID }
func userEmailKey(email string) string { return "user_email:" + strings.ToLower(email) }

// CreateUser persists a new user, enforcing email uniqueness. Returns an
// error with the message "email_taken" if the email is already taken.
func (s *Store) CreateUser(ctx context.Context, u User) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(userEmailKey(u.Email))); err == nil {
			return fmt.Errorf("email_taken")
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := put(txn, userKey(u.UserID), u); err != nil {
			return err
		}
		return put(txn, userEmailKey(u.Email), u.UserID)
	})
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return get(txn, userKey(userID), &u)
	})
	return u, err
}

// GetUserByEmail fetches a user by their lowercased email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var userID string
	var u User
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		if err := get(txn, userEmailKey(email), &userID); err != nil {
			return err
		}
		return get(txn, userKey(userID), &u)
	})
	return u, err
}

// UpdateUser overwrites the stored user row.
func (s *Store) UpdateUser(ctx context.Context, u User) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return put(txn, userKey(u.UserID), u)
	})
}

// =============================================================================
// Refresh tokens
// =============================================================================

func refreshKey(tokenHash string) string { return "refresh:" + tokenHash }

// PutRefreshToken stores a new refresh token row.
func (s *Store) PutRefreshToken(ctx context.Context, rt RefreshToken) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return put(txn, refreshKey(rt.TokenHash), rt)
	})
}

// GetRefreshToken fetches a refresh token by its hash.
func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (RefreshToken, error) {
	var rt RefreshToken
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return get(txn, refreshKey(tokenHash), &rt)
	})
	return rt, err
}

// RevokeRefreshToken marks a single token as revoked (used by logout and
// by refresh rotation, which invalidates the presented token atomically
// with issuing the replacement).
func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		var rt RefreshToken
		if err := get(txn, refreshKey(tokenHash), &rt); err != nil {
			return err
		}
		rt.Revoked = true
		return put(txn, refreshKey(tokenHash), rt)
	})
}

// RevokeSession revokes every refresh token issued under sessionID, so
// revoking a session invalidates all refresh tokens minted under it.
func (s *Store) RevokeSession(ctx context.Context, sessionID string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("refresh:")
		it := txn.NewIterator(opts)
		defer it.Close()

		var toUpdate []RefreshToken
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var rt RefreshToken
			if err := it.Item().Value(func(val []byte) error { return decode(val, &rt) }); err != nil {
				return err
			}
			if rt.SessionID == sessionID && !rt.Revoked {
				rt.Revoked = true
				toUpdate = append(toUpdate, rt)
			}
		}
		for _, rt := range toUpdate {
			if err := put(txn, refreshKey(rt.TokenHash), rt); err != nil {
				return err
			}
		}
		return nil
	})
}

// RevokeAllSessionsForUser revokes every refresh token belonging to
// userID, across all of their sessions.
func (s *Store) RevokeAllSessionsForUser(ctx context.Context, userID string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("refresh:")
		it := txn.NewIterator(opts)
		defer it.Close()

		var toUpdate []RefreshToken
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var rt RefreshToken
			if err := it.Item().Value(func(val []byte) error { return decode(val, &rt) }); err != nil {
				return err
			}
			if rt.UserID == userID && !rt.Revoked {
				rt.Revoked = true
				toUpdate = append(toUpdate, rt)
			}
		}
		for _, rt := range toUpdate {
			if err := put(txn, refreshKey(rt.TokenHash), rt); err != nil {
				return err
			}
		}
		return nil
	})
}

// SweepExpiredRefreshTokens deletes every refresh token past its expiry,
// whether or not it was explicitly revoked. Safe to run on a recurring
// schedule; it only ever deletes rows that can no longer be presented
// successfully.
func (s *Store) SweepExpiredRefreshTokens(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("refresh:")
		it := txn.NewIterator(opts)
		defer it.Close()

		var toDelete [][]byte
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var rt RefreshToken
			if err := it.Item().Value(func(val []byte) error { return decode(val, &rt) }); err != nil {
				return err
			}
			if now.After(rt.ExpiresAt) {
				toDelete = append(toDelete, append([]byte(nil), it.Item().Key()...))
			}
		}
		for _, key := range toDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// =============================================================================
// OTP — one-live-per-email invariant
// =============================================================================

func otpKey(email string) string { return "otp:" + strings.ToLower(email) }

// UpsertOTP stores otp as the sole live OTP for its email, superseding
// any prior row: issuing a new OTP always supersedes an earlier one.
func (s *Store) UpsertOTP(ctx context.Context, otp OTP) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return put(txn, otpKey(otp.Email), otp)
	})
}

// GetOTP fetches the live OTP row for email, if any.
func (s *Store) GetOTP(ctx context.Context, email string) (OTP, error) {
	var otp OTP
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return get(txn, otpKey(email), &otp)
	})
	return otp, err
}

// SaveOTP overwrites the OTP row in place, used after a failed verify
// attempt decrements AttemptsRemaining or a successful one sets Consumed.
func (s *Store) SaveOTP(ctx context.Context, otp OTP) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return put(txn, otpKey(otp.Email), otp)
	})
}

// =============================================================================
// Documents
// =============================================================================

func documentKey(id string) string { return "document:" + id }

func (s *Store) PutDocument(ctx context.Context, d Document) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return put(txn, documentKey(d.DocumentID), d)
	})
}

func (s *Store) GetDocument(ctx context.Context, id string) (Document, error) {
	var d Document
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return get(txn, documentKey(id), &d)
	})
	return d, err
}

// ListDocumentsByUser returns every document owned by userID, most recent
// upload first.
func (s *Store) ListDocumentsByUser(ctx context.Context, userID string) ([]Document, error) {
	var docs []Document
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("document:")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var d Document
			if err := it.Item().Value(func(val []byte) error { return decode(val, &d) }); err != nil {
				return err
			}
			if d.OwnerUserID == userID {
				docs = append(docs, d)
			}
		}
		return nil
	})
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.After(docs[j].UploadedAt) })
	return docs, err
}

// =============================================================================
// Blobs (uploaded PDF bytes, extracted page images)
// =============================================================================

func blobKey(key string) string { return "blob:" + key }

func (s *Store) PutBlob(ctx context.Context, key string, data []byte) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte(blobKey(key)), data)
	})
}

func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobKey(key)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	return out, err
}

// =============================================================================
// Lessons
// =============================================================================

func lessonKey(id string) string          { return "lesson:" + id }
func lessonByDocumentKey(docID string) string { return "lesson_by_document:" + docID }

// PutLesson persists l and maintains the document_id -> lesson_id index
// used for idempotent consumption of document.ingested events.
func (s *Store) PutLesson(ctx context.Context, l Lesson) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := put(txn, lessonKey(l.LessonID), l); err != nil {
			return err
		}
		return put(txn, lessonByDocumentKey(l.DocumentID), l.LessonID)
	})
}

func (s *Store) GetLesson(ctx context.Context, id string) (Lesson, error) {
	var l Lesson
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return get(txn, lessonKey(id), &l)
	})
	return l, err
}

// GetLessonByDocument looks up the lesson already derived for documentID,
// if any — the idempotency check for the Lesson Generator's consumer.
func (s *Store) GetLessonByDocument(ctx context.Context, documentID string) (Lesson, bool, error) {
	var lessonID string
	var l Lesson
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		if err := get(txn, lessonByDocumentKey(documentID), &lessonID); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return get(txn, lessonKey(lessonID), &l)
	})
	if err != nil {
		return Lesson{}, false, err
	}
	return l, lessonID != "", nil
}

// ListLessonsByUser returns every lesson owned by userID, most recent
// first, for GET /api/lessons/user/{user_id}/history.
func (s *Store) ListLessonsByUser(ctx context.Context, userID string) ([]Lesson, error) {
	var lessons []Lesson
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("lesson:")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var l Lesson
			if err := it.Item().Value(func(val []byte) error { return decode(val, &l) }); err != nil {
				return err
			}
			if l.OwnerUserID == userID {
				lessons = append(lessons, l)
			}
		}
		return nil
	})
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].CreatedAt.After(lessons[j].CreatedAt) })
	return lessons, err
}

// DeleteLesson tombstones a lesson and its index entry. Deleting a user
// cascades here; deleting a conversation does not.
func (s *Store) DeleteLesson(ctx context.Context, id string) error {
	l, err := s.GetLesson(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(lessonKey(id))); err != nil {
			return err
		}
		return txn.Delete([]byte(lessonByDocumentKey(l.DocumentID)))
	})
}

// =============================================================================
// Conversations
// =============================================================================

func conversationKey(id string) string { return "conversation:" + id }

func (s *Store) PutConversation(ctx context.Context, c Conversation) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return put(txn, conversationKey(c.ConversationID), c)
	})
}

func (s *Store) GetConversation(ctx context.Context, id string) (Conversation, error) {
	var c Conversation
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return get(txn, conversationKey(id), &c)
	})
	return c, err
}

// ListConversations returns userID's non-deleted conversations ordered by
// updated_at descending.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	var convs []Conversation
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("conversation:")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var c Conversation
			if err := it.Item().Value(func(val []byte) error { return decode(val, &c) }); err != nil {
				return err
			}
			if c.OwnerUserID == userID && !c.Deleted {
				convs = append(convs, c)
			}
		}
		return nil
	})
	sort.Slice(convs, func(i, j int) bool { return convs[i].UpdatedAt.After(convs[j].UpdatedAt) })
	return convs, err
}

// =============================================================================
// Visualizations
// =============================================================================

func visualizationKey(id string) string              { return "viz:" + id }
func visualizationByLessonKey(lessonID string) string { return "viz_by_lesson:" + lessonID }

// PutVisualization persists v and updates the lesson_id -> latest
// visualization_id pointer: the most recently persisted visualization
// is always the canonical one for playback.
func (s *Store) PutVisualization(ctx context.Context, v Visualization) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := put(txn, visualizationKey(v.VisualizationID), v); err != nil {
			return err
		}
		return put(txn, visualizationByLessonKey(v.LessonID), v.VisualizationID)
	})
}

func (s *Store) GetVisualization(ctx context.Context, id string) (Visualization, error) {
	var v Visualization
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return get(txn, visualizationKey(id), &v)
	})
	return v, err
}

// GetLatestVisualizationByLesson returns the canonical visualization for
// lessonID, i.e. the most recently persisted one.
func (s *Store) GetLatestVisualizationByLesson(ctx context.Context, lessonID string) (Visualization, error) {
	var vizID string
	var v Visualization
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		if err := get(txn, visualizationByLessonKey(lessonID), &vizID); err != nil {
			return err
		}
		return get(txn, visualizationKey(vizID), &v)
	})
	return v, err
}

// =============================================================================
// Quizzes & submissions
// =============================================================================

func quizKey(lessonID string) string { return "quiz:" + lessonID }

func (s *Store) PutQuiz(ctx context.Context, q Quiz) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return put(txn, quizKey(q.LessonID), q)
	})
}

func (s *Store) GetQuiz(ctx context.Context, lessonID string) (Quiz, error) {
	var q Quiz
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return get(txn, quizKey(lessonID), &q)
	})
	return q, err
}

// submissionKey embeds a millisecond timestamp so historical submissions
// sort naturally and the canonical (most recent) one is cheap to find.
func submissionKey(userID, lessonID string, submittedAt time.Time) string {
	return fmt.Sprintf("submission:%s:%s:%020d", userID, lessonID, submittedAt.UnixNano())
}

func (s *Store) PutSubmission(ctx context.Context, sub Submission) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return put(txn, submissionKey(sub.UserID, sub.LessonID, sub.SubmittedAt), sub)
	})
}

// GetLatestSubmission returns the canonical submission for (userID,
// lessonID) — the most recently submitted one.
func (s *Store) GetLatestSubmission(ctx context.Context, userID, lessonID string) (Submission, error) {
	var latest Submission
	found := false
	prefix := fmt.Sprintf("submission:%s:%s:", userID, lessonID)
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()
		// Reverse iteration over a prefix requires seeking to the
		// prefix upper bound; badger's simplest portable approach is a
		// forward scan keeping the last (and therefore latest) match.
		fwd := txn.NewIterator(badger.DefaultIteratorOptions)
		defer fwd.Close()
		for fwd.Seek([]byte(prefix)); fwd.ValidForPrefix([]byte(prefix)); fwd.Next() {
			var sub Submission
			if err := fwd.Item().Value(func(val []byte) error { return decode(val, &sub) }); err != nil {
				return err
			}
			latest = sub
			found = true
		}
		return nil
	})
	if err != nil {
		return Submission{}, err
	}
	if !found {
		return Submission{}, ErrNotFound
	}
	return latest, nil
}
