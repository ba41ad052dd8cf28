package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Player matches models.CreatePlayerRequest
type Player struct {
	Name          string  `json:"name"`
	Ranking       int     `json:"ranking"`
	RankingPoints int     `json:"ranking_points"`
	Nationality   string  `json:"nationality"`
	PlayingStyle  string  `json:"playing_style"`
	Hand          string  `json:"hand"`
	Age           int     `json:"age"`
	Fitness       float64 `json:"fitness"`
}

// Match matches models.CreateMatchRequest
type Match struct {
	Player1ID   string    `json:"player1_id"`
	Player2ID   string    `json:"player2_id"`
	Round       string    `json:"round"`
	Surface     string    `json:"surface"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

var players = []Player{
	{Name: "Carlos Alcaraz", Ranking: 1, RankingPoints: 11540, Nationality: "ESP", PlayingStyle: "all_court", Hand: "right", Age: 23, Fitness: 92},
	{Name: "Jannik Sinner", Ranking: 2, RankingPoints: 10950, Nationality: "ITA", PlayingStyle: "aggressive_baseliner", Hand: "right", Age: 25, Fitness: 90},
	{Name: "Alexander Zverev", Ranking: 3, RankingPoints: 6610, Nationality: "GER", PlayingStyle: "big_server", Hand: "right", Age: 29, Fitness: 85},
	{Name: "Taylor Fritz", Ranking: 4, RankingPoints: 5035, Nationality: "USA", PlayingStyle: "big_server", Hand: "right", Age: 28, Fitness: 84},
	{Name: "Alex de Minaur", Ranking: 7, RankingPoints: 4135, Nationality: "AUS", PlayingStyle: "counterpuncher", Hand: "right", Age: 27, Fitness: 88},
	{Name: "Ben Shelton", Ranking: 8, RankingPoints: 3970, Nationality: "USA", PlayingStyle: "big_server", Hand: "left", Age: 24, Fitness: 86},
}

func post(client *http.Client, url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, string(data))
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func main() {
	apiURL := flag.String("api", "http://localhost:8080/api", "API base URL")
	analyze := flag.Bool("analyze", false, "Request an analysis for the first seeded match")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Minute}

	ids := make([]string, 0, len(players))
	for _, p := range players {
		var created struct {
			ID string `json:"id"`
		}
		if err := post(client, *apiURL+"/players", p, &created); err != nil {
			log.Fatalf("Failed to create player %s: %v", p.Name, err)
		}
		fmt.Printf("✅ Player %s -> %s\n", p.Name, created.ID)
		ids = append(ids, created.ID)
	}

	surfaces := []string{"hard", "clay", "grass"}
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	var matchIDs []string
	for i := 0; i+1 < len(ids); i += 2 {
		m := Match{
			Player1ID:   ids[i],
			Player2ID:   ids[i+1],
			Round:       "QF",
			Surface:     surfaces[(i/2)%len(surfaces)],
			ScheduledAt: start.Add(time.Duration(i) * time.Hour),
		}
		var created struct {
			ID string `json:"id"`
		}
		if err := post(client, *apiURL+"/matches", m, &created); err != nil {
			log.Fatalf("Failed to create match: %v", err)
		}
		fmt.Printf("✅ Match %s on %s\n", created.ID, m.Surface)
		matchIDs = append(matchIDs, created.ID)
	}

	if !*analyze || len(matchIDs) == 0 {
		return
	}

	var pred struct {
		PredictedWinnerID string  `json:"predicted_winner_id"`
		WinProbability    float64 `json:"win_probability"`
		Source            string  `json:"synthesis_source"`
	}
	req := map[string]interface{}{"matchId": matchIDs[0], "forceRefresh": true}
	if err := post(client, *apiURL+"/predictions/analyze", req, &pred); err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	fmt.Printf("✅ Predicted %s at %.2f (%s)\n", pred.PredictedWinnerID, pred.WinProbability, pred.Source)
}
