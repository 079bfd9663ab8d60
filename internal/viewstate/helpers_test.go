package viewstate

import "bookapp/internal/remote"

func remoteBook(owner, title string) remote.BookDocument {
	return remote.BookDocument{UserID: owner, Title: title, Author: "Remote", Category: "Fiction", DateAdded: 1, LastModified: 1}
}
