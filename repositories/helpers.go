package repositories

import "net/url"

// checkModified превращает подтверждённую запись, ничего не задевшую, в notFoundError.
func checkModified(result WriteResult, notFoundError error) error {
	if result.ModifiedCount == 0 && result.MatchedCount == 0 {
		return notFoundError
	}
	return nil
}

func checkDeleted(result WriteResult, notFoundError error) error {
	if result.DeletedCount == 0 {
		return notFoundError
	}
	return nil
}

func params(pairs ...string) url.Values {
	values := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		values.Set(pairs[i], pairs[i+1])
	}
	return values
}
