package protocol

// Channel is a logical bus channel name. Every channel except discovery is
// namespaced by the bot id on the wire.
type Channel string

const (
	ChannelState          Channel = "state"
	ChannelGameUpdate     Channel = "game_update"
	ChannelRecommendation Channel = "recommendation"
	ChannelAction         Channel = "action"
	ChannelCommand        Channel = "command"
	ChannelDiscovery      Channel = "discovery"
)

func (c Channel) Namespaced(namespace string) string {
	if c == ChannelDiscovery || namespace == "" {
		return string(c)
	}
	return namespace + "-" + string(c)
}
