package domain

import "fmt"

type RoomName string

const channelRoomPrefix = "channel:"

// ChannelRoom names the transport room that mirrors a channel.
func ChannelRoom(id ChannelID) RoomName {
	return RoomName(fmt.Sprintf("%s%d", channelRoomPrefix, id))
}
