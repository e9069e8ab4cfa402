package posts_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/soapboxsocial/fanout/pkg/posts"
)

func TestBackend_Exists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	backend := posts.NewBackend(db)

	mock.ExpectPrepare("^SELECT EXISTS (.+)").
		ExpectQuery().
		WithArgs("post", 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := backend.Exists(context.Background(), "post", 1)
	if err != nil {
		t.Fatal(err)
	}

	if exists {
		t.Fatal("expected post to be missing")
	}
}
