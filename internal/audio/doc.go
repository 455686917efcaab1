// Package audio validates extracted WAV members. Valid streams are written out
// byte for byte.
package audio
