package warehouse

// Table names. Engines fold the unquoted names to lower case.
const (
	StageEvents = "stageEvents"
	StageSongs  = "stageSongs"
	Songplays   = "factSongplays"
	Users       = "dimUsers"
	Songs       = "dimSongs"
	Artists     = "dimArtists"
	Time        = "dimTime"
)

var stageEventsTable = Table{
	Name: StageEvents,
	Kind: KindStaging,
	Columns: []Column{
		{Name: "artist", Type: "TEXT"},
		{Name: "auth", Type: "VARCHAR(50)"},
		{Name: "firstName", Type: "VARCHAR(25)"},
		{Name: "gender", Type: "VARCHAR(10)"},
		{Name: "itemInSession", Type: "SMALLINT"},
		{Name: "lastName", Type: "VARCHAR(25)"},
		{Name: "length", Type: "FLOAT", Default: "0"},
		{Name: "level", Type: "VARCHAR(20)"},
		{Name: "location", Type: "VARCHAR(200)"},
		{Name: "method", Type: "VARCHAR(10)"},
		{Name: "page", Type: "VARCHAR(20)"},
		{Name: "registration", Type: "VARCHAR(50)"},
		{Name: "sessionId", Type: "INTEGER"},
		{Name: "song", Type: "VARCHAR(200)"},
		{Name: "status", Type: "SMALLINT"},
		{Name: "ts", Type: "TIMESTAMP"},
		{Name: "userAgent", Type: "VARCHAR(256)"},
		{Name: "userId", Type: "INTEGER"},
	},
}

var stageSongsTable = Table{
	Name: StageSongs,
	Kind: KindStaging,
	Columns: []Column{
		{Name: "num_songs", Type: "SMALLINT"},
		{Name: "artist_id", Type: "VARCHAR(50)"},
		{Name: "artist_latitude", Type: "FLOAT"},
		{Name: "artist_longitude", Type: "FLOAT"},
		{Name: "artist_location", Type: "TEXT"},
		{Name: "artist_name", Type: "TEXT"},
		{Name: "song_id", Type: "VARCHAR(50)"},
		{Name: "title", Type: "VARCHAR(200)"},
		{Name: "duration", Type: "FLOAT"},
		{Name: "year", Type: "SMALLINT"},
	},
}

var usersTable = Table{
	Name: Users,
	Kind: KindDimension,
	Columns: []Column{
		{Name: "user_id", Type: "INTEGER", PrimaryKey: true, SortKey: true},
		{Name: "first_name", Type: "VARCHAR(50)"},
		{Name: "last_name", Type: "VARCHAR(50)"},
		{Name: "gender", Type: "VARCHAR(50)"},
		{Name: "level", Type: "VARCHAR(50)"},
	},
	DistStyleAll: true,
}

var songsTable = Table{
	Name: Songs,
	Kind: KindDimension,
	Columns: []Column{
		{Name: "song_id", Type: "VARCHAR(50)", PrimaryKey: true, SortKey: true},
		{Name: "title", Type: "VARCHAR(200)"},
		{Name: "artist_id", Type: "VARCHAR(50)"},
		{Name: "year", Type: "SMALLINT"},
		{Name: "duration", Type: "FLOAT"},
	},
}

var artistsTable = Table{
	Name: Artists,
	Kind: KindDimension,
	Columns: []Column{
		{Name: "artist_id", Type: "VARCHAR(50)", PrimaryKey: true, DistKey: true},
		{Name: "name", Type: "TEXT"},
		{Name: "location", Type: "TEXT"},
		{Name: "latitude", Type: "NUMERIC(9,5)"},
		{Name: "longitude", Type: "NUMERIC(9,5)"},
	},
}

var timeTable = Table{
	Name: Time,
	Kind: KindDimension,
	Columns: []Column{
		{Name: "start_time", Type: "TIMESTAMP", NotNull: true, PrimaryKey: true, UniqueByConstruction: true, SortKey: true},
		{Name: "hour", Type: "SMALLINT"},
		{Name: "day", Type: "SMALLINT"},
		{Name: "week", Type: "SMALLINT"},
		{Name: "month", Type: "SMALLINT"},
		{Name: "year", Type: "SMALLINT"},
		{Name: "weekday", Type: "SMALLINT"},
	},
}

// song_id and artist_id stay nullable: the best-effort join leaves them
// NULL for plays with no catalog match.
var songplaysTable = Table{
	Name: Songplays,
	Kind: KindFact,
	Columns: []Column{
		{Name: "songplay_id", Type: "INTEGER", Identity: true, PrimaryKey: true, UniqueByConstruction: true},
		{Name: "start_time", Type: "TIMESTAMP", NotNull: true, References: "dimTime(start_time)", SortKey: true},
		{Name: "user_id", Type: "INTEGER", References: "dimUsers(user_id)"},
		{Name: "level", Type: "VARCHAR(50)"},
		{Name: "song_id", Type: "VARCHAR(50)", References: "dimSongs(song_id)"},
		{Name: "artist_id", Type: "VARCHAR(50)", References: "dimArtists(artist_id)", DistKey: true},
		{Name: "session_id", Type: "INTEGER", NotNull: true},
		{Name: "location", Type: "VARCHAR(200)"},
		{Name: "user_agent", Type: "TEXT"},
	},
}

// Tables returns every table in create order: staging, dimensions, then the
// fact table that references them.
func Tables() []Table {
	return []Table{
		stageEventsTable,
		stageSongsTable,
		usersTable,
		songsTable,
		artistsTable,
		timeTable,
		songplaysTable,
	}
}

// WarehouseTables returns the fact and dimension tables in insert order.
func WarehouseTables() []Table {
	return []Table{songplaysTable, usersTable, songsTable, artistsTable, timeTable}
}

// CreateStatements returns one CREATE TABLE IF NOT EXISTS per table, in
// create order.
func CreateStatements(d Dialect) []Statement {
	tables := Tables()
	stmts := make([]Statement, 0, len(tables))
	for _, t := range tables {
		stmts = append(stmts, Statement{
			Name:   "create " + t.Name,
			Target: t.Name,
			SQL:    t.CreateSQL(d),
		})
	}
	return stmts
}

// DropStatements returns one DROP TABLE IF EXISTS per table, fact table
// first, so that engines enforcing references can drop cleanly.
func DropStatements() []Statement {
	tables := Tables()
	stmts := make([]Statement, 0, len(tables))
	for i := len(tables) - 1; i >= 0; i-- {
		stmts = append(stmts, Statement{
			Name:   "drop " + tables[i].Name,
			Target: tables[i].Name,
			SQL:    tables[i].DropSQL(),
		})
	}
	return stmts
}
