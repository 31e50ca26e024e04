package mtproto

import "github.com/gotd/td/tg"

// Bot API chat IDs of channels and supergroups are -(1e12 + channel ID)
const channelChatIDOffset = 1000000000000

// ChannelChatID converts a raw channel ID to its Bot API chat ID
func ChannelChatID(channelID int64) int64 {
	return -(channelChatIDOffset + channelID)
}

// ChannelID converts a Bot API chat ID to a raw channel ID.
// ok is false if chatID does not denote a channel.
func ChannelID(chatID int64) (channelID int64, ok bool) {
	if chatID >= -channelChatIDOffset {
		return 0, false
	}
	return -chatID - channelChatIDOffset, true
}

// ChatIDFromPeer returns the Bot API chat ID of a peer
func ChatIDFromPeer(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerChannel:
		return ChannelChatID(p.ChannelID)
	default:
		return 0
	}
}
