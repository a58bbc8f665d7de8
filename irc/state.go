package irc

import (
	"sort"
	"sync"
)

// State is the per-connection knowledge about ourselves and the channels we
// are in.  It is written by a single goroutine and can be read from any.
type State struct {
	l sync.RWMutex

	global     *GlobalUserState
	userStates map[string]UserState       // our USERSTATE per channel.
	rooms      map[string]*RoomState      // joined channels.
	joined     []string                   // joined channels, in join order.
	mods       map[string]map[string]bool // moderators per channel.
	emoteSets  map[string][]Emote
}

func NewState() *State {
	return &State{
		userStates: map[string]UserState{},
		rooms:      map[string]*RoomState{},
		mods:       map[string]map[string]bool{},
		emoteSets:  map[string][]Emote{},
	}
}

func (st *State) GlobalUserState() (gus GlobalUserState, ok bool) {
	st.l.RLock()
	defer st.l.RUnlock()
	if st.global == nil {
		return
	}
	return *st.global, true
}

func (st *State) setGlobal(gus GlobalUserState) {
	st.l.Lock()
	st.global = &gus
	st.l.Unlock()
}

func (st *State) UserState(channel string) (us UserState, ok bool) {
	st.l.RLock()
	defer st.l.RUnlock()
	us, ok = st.userStates[Channel(channel)]
	return
}

func (st *State) setUserState(channel string, us UserState) {
	st.l.Lock()
	defer st.l.Unlock()
	if _, ok := st.rooms[channel]; ok {
		st.userStates[channel] = us
	}
}

// RoomState returns a copy of the state of the given channel.
func (st *State) RoomState(channel string) (rs RoomState, ok bool) {
	st.l.RLock()
	defer st.l.RUnlock()
	r, ok := st.rooms[Channel(channel)]
	if !ok {
		return
	}
	return *r, true
}

// Channels returns the joined channels in join order.
func (st *State) Channels() []string {
	st.l.RLock()
	defer st.l.RUnlock()
	channels := make([]string, len(st.joined))
	copy(channels, st.joined)
	return channels
}

func (st *State) IsJoined(channel string) bool {
	st.l.RLock()
	defer st.l.RUnlock()
	_, ok := st.rooms[Channel(channel)]
	return ok
}

// addChannel creates the entries of a channel if they don't exist yet.
func (st *State) addChannel(channel string) {
	st.l.Lock()
	defer st.l.Unlock()
	if _, ok := st.rooms[channel]; !ok {
		st.rooms[channel] = newRoomState(channel)
		st.joined = append(st.joined, channel)
	}
	if _, ok := st.mods[channel]; !ok {
		st.mods[channel] = map[string]bool{}
	}
}

func (st *State) removeChannel(channel string) {
	st.l.Lock()
	defer st.l.Unlock()
	delete(st.rooms, channel)
	delete(st.mods, channel)
	delete(st.userStates, channel)
	for i, c := range st.joined {
		if c == channel {
			st.joined = append(st.joined[:i], st.joined[i+1:]...)
			break
		}
	}
}

// mergeRoomState merges the present tags into the state of channel.  It
// returns false, and changes nothing, if channel is not joined.
func (st *State) mergeRoomState(channel string, tags Tags) (RoomState, bool) {
	st.l.Lock()
	defer st.l.Unlock()
	rs, ok := st.rooms[channel]
	if !ok {
		return RoomState{}, false
	}
	rs.merge(tags)
	return *rs, true
}

// IsMod reports whether username moderates channel.
func (st *State) IsMod(channel, username string) bool {
	st.l.RLock()
	defer st.l.RUnlock()
	return st.mods[Channel(channel)][Username(username)]
}

// Mods returns the known moderators of channel, sorted.
func (st *State) Mods(channel string) []string {
	st.l.RLock()
	defer st.l.RUnlock()
	var mods []string
	for name := range st.mods[Channel(channel)] {
		mods = append(mods, name)
	}
	sort.Strings(mods)
	return mods
}

// addMod, removeMod and setMods ignore channels that are not joined.
func (st *State) addMod(channel, username string) {
	st.l.Lock()
	defer st.l.Unlock()
	if mods, ok := st.mods[channel]; ok {
		mods[username] = true
	}
}

func (st *State) removeMod(channel, username string) {
	st.l.Lock()
	defer st.l.Unlock()
	delete(st.mods[channel], username)
}

func (st *State) setMods(channel string, mods []string) {
	st.l.Lock()
	defer st.l.Unlock()
	if _, ok := st.mods[channel]; !ok {
		return
	}
	set := make(map[string]bool, len(mods))
	for _, m := range mods {
		set[m] = true
	}
	st.mods[channel] = set
}

// EmoteSets returns a copy of the emote set registry.
func (st *State) EmoteSets() map[string][]Emote {
	st.l.RLock()
	defer st.l.RUnlock()
	sets := make(map[string][]Emote, len(st.emoteSets))
	for id, emotes := range st.emoteSets {
		sets[id] = append([]Emote(nil), emotes...)
	}
	return sets
}

func (st *State) setEmoteSets(sets map[string][]Emote) {
	st.l.Lock()
	defer st.l.Unlock()
	for id, emotes := range sets {
		st.emoteSets[id] = emotes
	}
}

// ResetChannels drops everything that belongs to joined channels.  It is
// called when the connection is lost.
func (st *State) ResetChannels() {
	st.l.Lock()
	defer st.l.Unlock()
	st.rooms = map[string]*RoomState{}
	st.mods = map[string]map[string]bool{}
	st.userStates = map[string]UserState{}
	st.joined = nil
}

// Reset drops everything but the emote set registry.
func (st *State) Reset() {
	st.ResetChannels()
	st.l.Lock()
	st.global = nil
	st.l.Unlock()
}
