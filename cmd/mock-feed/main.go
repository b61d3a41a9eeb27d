package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/UserDirectory/internal/domain"
	"github.com/gorilla/mux"
)

var users = []domain.User{
	{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz", Phone: "1-770-736-8031 x56442", Website: "hildegard.org"},
	{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv", Phone: "010-692-6593 x09125", Website: "anastasia.net"},
	{ID: 3, Name: "Clementine Bauch", Username: "Samantha", Email: "Nathan@yesenia.net", Phone: "1-463-123-4447", Website: "ramiro.info"},
	{ID: 4, Name: "Patricia Lebsack", Username: "Karianne", Email: "Julianne.OConner@kory.org", Phone: "493-170-9623 x156", Website: "kale.biz"},
	{ID: 5, Name: "Chelsey Dietrich", Username: "Kamren", Email: "Lucio_Hettinger@annie.ca", Phone: "(254)954-1289", Website: "demarco.info"},
	{ID: 6, Name: "Mrs. Dennis Schulist", Username: "Leopoldo_Corkery", Email: "Karley_Dach@jasper.info", Phone: "1-477-935-8478 x6430", Website: "ola.org"},
	{ID: 7, Name: "Kurtis Weissnat", Username: "Elwyn.Skiles", Email: "Telly.Hoeger@billy.biz", Phone: "210.067.6132", Website: "elvis.io"},
	{ID: 8, Name: "Nicholas Runolfsdottir V", Username: "Maxime_Nienow", Email: "Sherwood@rosamond.me", Phone: "586.493.6943 x140", Website: "jacynthe.com"},
	{ID: 9, Name: "Glenna Reichert", Username: "Delphine", Email: "Chaim_McDermott@dana.io", Phone: "(775)976-6794 x41206", Website: "conrad.com"},
	{ID: 10, Name: "Clementina DuBuque", Username: "Moriah.Stanton", Email: "Rey.Padberg@karina.biz", Phone: "024-648-3804", Website: "ambrose.net"},
}

// page slices users the way json-server does for _page and _limit.
// A missing _limit returns everything.
func page(r *http.Request) []domain.User {
	limit, err := strconv.Atoi(r.URL.Query().Get("_limit"))
	if err != nil || limit < 1 {
		return users
	}
	p, err := strconv.Atoi(r.URL.Query().Get("_page"))
	if err != nil || p < 1 {
		p = 1
	}

	start := (p - 1) * limit
	if start >= len(users) {
		return []domain.User{}
	}
	end := start + limit
	if end > len(users) {
		end = len(users)
	}
	return users[start:end]
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func main() {
	latency, _ := time.ParseDuration(os.Getenv("MOCK_LATENCY"))

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if latency > 0 {
				time.Sleep(latency)
			}
			slog.Info("Serving page", "path", req.URL.Path, "query", req.URL.RawQuery)
			next.ServeHTTP(w, req)
		})
	})

	// USERS_DECODER=array, USERS_BASE_URL=http://localhost:8081
	r.HandleFunc("/users", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, page(req))
	}).Methods(http.MethodGet)

	// USERS_DECODER=envelope, USERS_BASE_URL=http://localhost:8081/envelope
	r.HandleFunc("/envelope/users", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]interface{}{"items": page(req)})
	}).Methods(http.MethodGet)

	slog.Info("Mock users server running on :8081")
	if err := http.ListenAndServe(":8081", r); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
