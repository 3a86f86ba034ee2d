package warehouse

// Songplays are every NextSong event. The join on title and artist name is
// best effort: a LEFT JOIN keeps plays with no catalog match and leaves their
// song_id and artist_id NULL, so the fact row count equals the NextSong count.
const songplaysInsert = `
INSERT INTO factSongplays (
    start_time,
    user_id,
    level,
    song_id,
    artist_id,
    session_id,
    location,
    user_agent
)
SELECT
    e.ts,
    e.userId,
    e.level,
    s.song_id,
    s.artist_id,
    e.sessionId,
    e.location,
    e.userAgent
FROM stageEvents AS e
LEFT JOIN stageSongs AS s
    ON e.song = s.title
    AND e.artist = s.artist_name
WHERE e.page = 'NextSong'`

// A user whose level or name changes within the batch keeps one row per
// distinct combination.
const usersInsert = `
INSERT INTO dimUsers (
    user_id,
    first_name,
    last_name,
    gender,
    level
)
SELECT DISTINCT
    e.userId,
    e.firstName,
    e.lastName,
    e.gender,
    e.level
FROM stageEvents AS e
WHERE e.userId IS NOT NULL
    AND e.page = 'NextSong'`

const songsInsert = `
INSERT INTO dimSongs (
    song_id,
    title,
    artist_id,
    year,
    duration
)
SELECT DISTINCT
    s.song_id,
    s.title,
    s.artist_id,
    s.year,
    s.duration
FROM stageSongs AS s`

const artistsInsert = `
INSERT INTO dimArtists (
    artist_id,
    name,
    location,
    latitude,
    longitude
)
SELECT DISTINCT
    s.artist_id,
    s.artist_name,
    s.artist_location,
    s.artist_latitude,
    s.artist_longitude
FROM stageSongs AS s`

// dow counts Sunday as 0.
const timeInsert = `
INSERT INTO dimTime (
    start_time,
    hour,
    day,
    week,
    month,
    year,
    weekday
)
SELECT DISTINCT
    fs.start_time,
    CAST(DATE_PART('hour', fs.start_time) AS INTEGER),
    CAST(DATE_PART('day', fs.start_time) AS INTEGER),
    CAST(DATE_PART('week', fs.start_time) AS INTEGER),
    CAST(DATE_PART('month', fs.start_time) AS INTEGER),
    CAST(DATE_PART('year', fs.start_time) AS INTEGER),
    CAST(DATE_PART('dow', fs.start_time) AS INTEGER)
FROM factSongplays AS fs`

// InsertStatements returns the transform statements in execution order.
// dimTime reads factSongplays and must come after it; the other dimensions
// read only staging.
func InsertStatements() []Statement {
	return []Statement{
		{Name: "insert " + Songplays, Target: Songplays, Reads: []string{StageEvents, StageSongs}, SQL: songplaysInsert},
		{Name: "insert " + Users, Target: Users, Reads: []string{StageEvents}, SQL: usersInsert},
		{Name: "insert " + Songs, Target: Songs, Reads: []string{StageSongs}, SQL: songsInsert},
		{Name: "insert " + Artists, Target: Artists, Reads: []string{StageSongs}, SQL: artistsInsert},
		{Name: "insert " + Time, Target: Time, Reads: []string{Songplays}, SQL: timeInsert},
	}
}
