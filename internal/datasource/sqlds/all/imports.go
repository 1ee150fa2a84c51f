// Package all enables every built-in SQL query source. Import it for side
// effects:
//
//	import _ "csvviz/internal/datasource/sqlds/all"
package all

import (
	_ "csvviz/internal/datasource/sqlds/mssql"
	_ "csvviz/internal/datasource/sqlds/mysql"
	_ "csvviz/internal/datasource/sqlds/postgres"
	_ "csvviz/internal/datasource/sqlds/sqlite"
)
