/*
 * Copyright 2019 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

// Package sutil holds small process-wide helpers shared by the sentry
// daemons: a zap logger constructor and the startup secret generator.
package sutil

import (
	"crypto/rand"
	"log"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	atomicLevel = zap.NewAtomicLevel()
	daemonName  string
)

func zapTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006/01/02 15:04:05.000"))
}

func zapCallerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	dir, fileName := filepath.Split(caller.File)
	dir = filepath.Base(dir)
	if dir != daemonName {
		fileName = filepath.Join(dir, fileName)
	}
	enc.AppendString(daemonName + ":" + fileName)
}

// NewLogger returns a sugared zap logger tagged with the given daemon
// name, matching the timestamp/caller conventions the teacher's daemons
// use (a fixed millisecond timestamp, no stack traces for expected
// failures).
func NewLogger(name string) *zap.SugaredLogger {
	daemonName = name

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.Level = atomicLevel
	zapConfig.DisableStacktrace = true
	zapConfig.EncoderConfig.EncodeTime = zapTimeEncoder
	zapConfig.EncoderConfig.EncodeCaller = zapCallerEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		log.Panicf("can't build logger: %s", err)
	}

	return logger.Sugar()
}

// LogSetLevel adjusts the process-wide log level at runtime.
func LogSetLevel(level string) error {
	var newLevel zapcore.Level
	if err := (&newLevel).UnmarshalText([]byte(level)); err != nil {
		return err
	}
	atomicLevel.SetLevel(newLevel)
	return nil
}

// NewSecret generates a fresh ASCII acceptance secret of the given length
// (sentryd asks for 16 characters). Each character is a random byte from
// crypto/rand mapped onto [A-Za-z0-9], rather than a UUID: the spec calls for an
// opaque substring match against query strings, not a structured
// identifier.
func NewSecret(length int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read on Linux only fails if the kernel RNG is
		// unreadable, which makes the whole system untrustworthy
		// anyway; panic rather than hand out a predictable secret.
		log.Panicf("could not generate secret: %v", err)
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}
