package session

type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseConnected
	PhaseJoinedLobby
	PhasePlaying
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "INITIALIZING"
	case PhaseConnected:
		return "CONNECTED"
	case PhaseJoinedLobby:
		return "JOINED_LOBBY"
	case PhasePlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
