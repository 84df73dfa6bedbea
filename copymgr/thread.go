package copymgr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/pdok/osmflex/pgsql"
)

// Store is the database connection owned by the copy thread.
type Store interface {
	Exec(ctx context.Context, sql string, args ...any) error
	CopyFrom(ctx context.Context, sql string, r io.Reader) error
	Close(ctx context.Context) error
}

type command struct {
	copy *copyCmd
	sync chan error
}

// Thread owns the background worker that applies queued commands to the
// store, in the order they were sent. After the first store error all later
// commands are dropped and the error is reported by Sync and Finish.
type Thread struct {
	store  Store
	cmds   chan command
	done   chan struct{}
	err    error
	finish sync.Once
}

// NewThread starts the worker. queueLen bounds the number of pending
// commands; senders block once it is reached.
func NewThread(store Store, queueLen int) *Thread {
	if queueLen < 1 {
		queueLen = 1
	}
	t := &Thread{
		store: store,
		cmds:  make(chan command, queueLen),
		done:  make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Thread) run() {
	defer close(t.done)
	ctx := context.Background()
	for cmd := range t.cmds {
		switch {
		case cmd.copy != nil:
			if t.err == nil {
				t.err = t.execute(ctx, cmd.copy)
			}
		case cmd.sync != nil:
			cmd.sync <- t.err
		}
	}
}

func (t *Thread) send(c *copyCmd) {
	t.cmds <- command{copy: c}
}

// Sync blocks until every command sent before it has been applied.
func (t *Thread) Sync() error {
	reply := make(chan error, 1)
	t.cmds <- command{sync: reply}
	return <-reply
}

// Finish waits for the queue to drain, stops the worker and closes the store.
func (t *Thread) Finish(ctx context.Context) error {
	var err error
	t.finish.Do(func() {
		err = t.Sync()
		close(t.cmds)
		<-t.done
		if cerr := t.store.Close(ctx); err == nil && cerr != nil {
			err = storeError("close", cerr)
		}
	})
	return err
}

func (t *Thread) execute(ctx context.Context, c *copyCmd) error {
	var deletes []deleteKey
	runDeletes := func() error {
		for _, stmt := range deleteStatements(c.target, deletes) {
			if err := t.store.Exec(ctx, stmt.sql, stmt.args...); err != nil {
				return storeError(stmt.sql, err)
			}
		}
		deletes = nil
		return nil
	}

	for _, e := range c.entries {
		if e.del != nil {
			deletes = append(deletes, *e.del)
			continue
		}
		if err := runDeletes(); err != nil {
			return err
		}
		sql := c.target.copySQL()
		if err := t.store.CopyFrom(ctx, sql, bytes.NewReader(e.rows)); err != nil {
			return storeError(sql, err)
		}
	}
	return runDeletes()
}

func storeError(sql string, err error) error {
	var storeErr *pgsql.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &pgsql.StoreError{SQL: sql, Err: err}
}
