package parser

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

// UserInfoTable is the only string table the engine reads.
const UserInfoTable = "userinfo"

// Layout of the fixed size player info record carried as extra data.
const (
	nameLength = 32
	guidLength = 33

	userIDOffset  = nameLength
	guidOffset    = userIDOffset + 4
	minInfoLength = guidOffset + guidLength
)

// ParseUserInfo attaches an identity block to the player owning the entry.
// Entry i belongs to entity i+1. Entries without extra data are ignored.
func (p *Parser) ParseUserInfo(entry streaming.StringEntry) error {
	if entry.Table != UserInfoTable || len(entry.Extra) == 0 {
		return nil
	}
	if entry.Index < 0 {
		return fmt.Errorf("userinfo entry has negative index %d", entry.Index)
	}

	info, err := decodeUserInfo(entry.Extra)
	if err != nil {
		return fmt.Errorf("error decoding userinfo entry %d: %w", entry.Index, err)
	}
	info.EntityID = core.EntityID(entry.Index + 1)

	player := p.store.Player(info.EntityID)
	if player.Info != nil && player.Info.UserID == info.UserID {
		info.Classes = player.Info.Classes
		info.Team = player.Info.Team
	}
	player.Info = &info

	p.logger.Debug("Parsed user info",
		"entity", info.EntityID,
		"userID", info.UserID,
		"name", info.Name)
	return nil
}

func decodeUserInfo(data []byte) (core.UserInfo, error) {
	var info core.UserInfo
	if len(data) < minInfoLength {
		return info, fmt.Errorf("player info is %d bytes, want at least %d", len(data), minInfoLength)
	}
	info.Name = cString(data[:nameLength])
	info.UserID = core.UserID(binary.LittleEndian.Uint32(data[userIDOffset:guidOffset]))
	info.SteamID = cString(data[guidOffset : guidOffset+guidLength])

	if sid := steamid.New(info.SteamID); sid.Valid() {
		info.SteamID64 = uint64(sid.Int64())
	}
	return info, nil
}

// cString returns the bytes up to the first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// EncodeUserInfo builds the extra data of a userinfo entry.
func EncodeUserInfo(name string, userID core.UserID, steamID string) []byte {
	data := make([]byte, minInfoLength)
	copy(data[:nameLength-1], name)
	binary.LittleEndian.PutUint32(data[userIDOffset:guidOffset], uint32(userID))
	copy(data[guidOffset:guidOffset+guidLength-1], steamID)
	return data
}
