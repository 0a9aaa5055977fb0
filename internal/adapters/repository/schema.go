package repository

// Schema creates the performances table. One row per song per show slot.
const Schema = `
CREATE TABLE IF NOT EXISTS performances (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	song_name    TEXT    NOT NULL,
	show_date    TEXT    NOT NULL,
	tour_id      TEXT    NOT NULL DEFAULT '',
	tour_label   TEXT    NOT NULL DEFAULT '',
	set_label    TEXT    NOT NULL,
	position     INTEGER NOT NULL DEFAULT 0,
	is_opener    INTEGER NOT NULL DEFAULT 0,
	is_closer    INTEGER NOT NULL DEFAULT 0,
	run_position TEXT    NOT NULL DEFAULT 'none',
	venue        TEXT    NOT NULL DEFAULT '',
	state        TEXT    NOT NULL DEFAULT '',
	country      TEXT    NOT NULL DEFAULT '',
	duration_ms  INTEGER,
	likes        INTEGER NOT NULL DEFAULT 0,
	is_jamchart  INTEGER NOT NULL DEFAULT 0,
	jam_notes    TEXT    NOT NULL DEFAULT '',
	UNIQUE (song_name, show_date, set_label, position)
);

CREATE INDEX IF NOT EXISTS idx_performances_song ON performances(song_name);
CREATE INDEX IF NOT EXISTS idx_performances_date ON performances(show_date);
`
