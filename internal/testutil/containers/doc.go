// Package containers starts throwaway Docker services for integration tests
// using testcontainers-go:
//
//   - MySQL 8.0, backing the gorm trigger store
//   - Eclipse Mosquitto, receiving trigger change notifications
//   - ntfy, receiving shoutrrr change summaries
//
// Everything here is behind the "integration" build tag. A package that
// needs a database typically starts one container in TestMain:
//
//	var mysqlContainer *containers.MySQLContainer
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    var err error
//	    mysqlContainer, err = containers.NewMySQLContainer(ctx, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = mysqlContainer.Terminate(ctx)
//	    os.Exit(code)
//	}
//
// Run with:
//
//	go test -tags=integration ./...
package containers
