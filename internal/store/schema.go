package store

import "time"

// Relationship is an undirected connection between two users. UserA sorts
// before UserB.
type Relationship struct {
	ID        string    `json:"id"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	Status    string    `json:"status"`
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Other returns the counterpart of userID in the relationship.
func (r Relationship) Other(userID string) string {
	if r.UserA == userID {
		return r.UserB
	}
	return r.UserA
}

// Account is a user profile.
type Account struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	AvatarURL string         `json:"avatar_url"`
	Details   map[string]any `json:"details,omitempty"`
}

// Schema creates every table the agent needs.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	details TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
	room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (room_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_participants_user ON participants(user_id);

CREATE TABLE IF NOT EXISTS memories (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT UNIQUE NOT NULL,
	namespace TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	room_id TEXT NOT NULL DEFAULT '',
	user_ids TEXT NOT NULL DEFAULT '[]',
	content TEXT NOT NULL,
	embedding BLOB,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_room ON memories(namespace, room_id, created_at);
CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(namespace, user_id, created_at);

CREATE TABLE IF NOT EXISTS relationships (
	id TEXT PRIMARY KEY,
	user_a TEXT NOT NULL,
	user_b TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	room_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	UNIQUE (user_a, user_b),
	CHECK (user_a < user_b)
);

CREATE TABLE IF NOT EXISTS goals (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	room_id TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL DEFAULT '',
	objectives TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_goals_owner ON goals(user_id, room_id);

CREATE TABLE IF NOT EXISTS logs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT UNIQUE NOT NULL,
	body TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	room_id TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_room ON logs(room_id, seq);
`
