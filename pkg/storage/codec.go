package storage

import (
	"encoding/binary"
)

// keys: t:<tick be64><seq be32> trade, m:<team be32><tick be64> mark, r result
var (
	prefixTrade = []byte("t:")
	prefixMark  = []byte("m:")
	keyResult   = []byte("r")
	keyRunID    = []byte("run")
)

func tradeKey(tick int, seq int) []byte {
	k := make([]byte, 0, len(prefixTrade)+12)
	k = append(k, prefixTrade...)
	k = binary.BigEndian.AppendUint64(k, uint64(tick))
	return binary.BigEndian.AppendUint32(k, uint32(seq))
}

func tradeTickPrefix(tick int) []byte {
	k := make([]byte, 0, len(prefixTrade)+8)
	k = append(k, prefixTrade...)
	return binary.BigEndian.AppendUint64(k, uint64(tick))
}

func markKey(team int, tick int) []byte {
	k := markTeamPrefix(team)
	return binary.BigEndian.AppendUint64(k, uint64(tick))
}

func markTeamPrefix(team int) []byte {
	k := make([]byte, 0, len(prefixMark)+12)
	k = append(k, prefixMark...)
	return binary.BigEndian.AppendUint32(k, uint32(team))
}

// keyUpperBound returns the smallest key greater than every key with prefix
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
