package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go-meal-analyzer/internal/nutrition"
)

func fastOptions(srv *httptest.Server, base string) []Option {
	return []Option{
		WithBaseURL(srv.URL + base),
		WithHTTPClient(srv.Client()),
		WithBackoff(0),
		WithRateLimit(1000),
	}
}

func TestFatSecretSearchAndDetails(t *testing.T) {
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/token":
			atomic.AddInt32(&tokenCalls, 1)
			w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
			return
		case r.Header.Get("Authorization") != "Bearer tok":
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("method") {
		case "foods.search":
			if r.URL.Query().Get("search_expression") != "chicken breast" {
				t.Errorf("search_expression = %q", r.URL.Query().Get("search_expression"))
			}
			// single object instead of an array
			w.Write([]byte(`{"foods":{"food":{"food_id":"33691","food_name":"Chicken Breast","food_type":"Generic"},"total_results":"1"}}`))
		case "food.get.v2":
			w.Write([]byte(`{"food":{"food_id":"33691","food_name":"Chicken Breast","food_type":"Generic","servings":{"serving":[
				{"serving_description":"1 breast","metric_serving_amount":"172.000","metric_serving_unit":"g","calories":"284"},
				{"serving_description":"100 g","metric_serving_amount":"100.000","metric_serving_unit":"g","calories":"165","carbohydrate":"0","protein":"31.02","fat":"3.57","sodium":"74"}
			]}}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	opts := append(fastOptions(srv, "/api"), WithTokenURL(srv.URL+"/token"))
	fs := NewFatSecret("id", "secret", opts...)

	hits, err := fs.Search(context.Background(), "chicken breast")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "33691" {
		t.Fatalf("hits = %+v", hits)
	}

	full, err := fs.Details(context.Background(), hits[0])
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}
	if full.ServingAmount != 100 || full.ServingUnit != "g" {
		t.Errorf("serving = %v %q, want the 100 g serving", full.ServingAmount, full.ServingUnit)
	}
	if full.Nutrition.Calories == nil || *full.Nutrition.Calories != 165 {
		t.Errorf("calories = %v", full.Nutrition.Calories)
	}
	if full.Nutrition.FibreG != nil {
		t.Error("missing fibre should stay nil")
	}
	if !full.Nutrition.Complete() {
		t.Error("expected complete macros")
	}
	if atomic.LoadInt32(&tokenCalls) != 1 {
		t.Errorf("token fetched %d times, want 1", tokenCalls)
	}
}

func TestFatSecretErrorObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
			return
		}
		w.Write([]byte(`{"error":{"code":"21","message":"Invalid IP address detected"}}`))
	}))
	defer srv.Close()

	fs := NewFatSecret("id", "secret", append(fastOptions(srv, "/api"), WithTokenURL(srv.URL+"/token"))...)
	if _, err := fs.Search(context.Background(), "apple"); err == nil || !strings.Contains(err.Error(), "Invalid IP") {
		t.Errorf("Search() error = %v", err)
	}
}

func TestUSDASearchAndDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch {
		case r.URL.Path == "/fdc/foods/search":
			w.Write([]byte(`{"foods":[
				{"fdcId":171077,"description":"Chicken, broilers or fryers, breast, meat only, cooked, roasted","dataType":"SR Legacy",
				 "foodNutrients":[{"nutrientId":1008,"unitName":"KCAL","value":165},{"nutrientId":1003,"unitName":"G","value":31.02}]},
				{"fdcId":0,"description":"broken"},
				{"fdcId":2,"description":"Bad energy","foodNutrients":[{"nutrientId":1008,"unitName":"KCAL","value":-5}]}
			]}`))
		case r.URL.Path == "/fdc/food/171077":
			w.Write([]byte(`{"fdcId":171077,"description":"Chicken breast, roasted","dataType":"Foundation","foodNutrients":[
				{"nutrient":{"id":1008,"unitName":"kJ"},"amount":690},
				{"nutrient":{"id":2047,"unitName":"kcal"},"amount":166},
				{"nutrient":{"id":1003,"unitName":"g"},"amount":31},
				{"nutrient":{"id":1004,"unitName":"g"},"amount":3.6},
				{"nutrient":{"id":1005,"unitName":"g"},"amount":0},
				{"nutrient":{"id":1063,"unitName":"g"},"amount":0},
				{"nutrient":{"id":1093,"unitName":"mg"},"amount":74}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	u := NewUSDA("key", fastOptions(srv, "/fdc")...)
	hits, err := u.Search(context.Background(), "chicken breast")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected malformed hits to be dropped, got %+v", hits)
	}
	if !hits[0].ReferenceData {
		t.Error("SR Legacy should count as reference data")
	}

	full, err := u.Details(context.Background(), hits[0])
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}
	if *full.Nutrition.Calories != 166 {
		t.Errorf("calories = %v, want kcal energy not kJ", *full.Nutrition.Calories)
	}
	if *full.Nutrition.SodiumMg != 74 || *full.Nutrition.SugarG != 0 {
		t.Errorf("nutrition = %+v", full.Nutrition)
	}
	if full.ServingAmount != 100 || full.ServingUnit != "g" {
		t.Errorf("serving = %v %q", full.ServingAmount, full.ServingUnit)
	}

	if _, err := u.Details(context.Background(), nutrition.Candidate{ID: "../etc"}); err == nil {
		t.Error("expected invalid id error")
	}
}

func TestEdamamParser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/parser" || r.URL.Query().Get("ingr") != "apple" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"hints":[
			{"food":{"foodId":"food_a1","label":"Apple","category":"Generic foods","nutrients":{"ENERC_KCAL":52,"PROCNT":0.26,"FAT":0.17,"CHOCDF":13.81,"FIBTG":2.4}}},
			{"food":{"foodId":"food_a1","label":"Apple","category":"Generic foods","nutrients":{"ENERC_KCAL":52}}},
			{"food":{"foodId":"food_b2","label":"Apple Pie","brand":"Bakery","category":"Packaged foods","nutrients":{"ENERC_KCAL":237}}}
		]}`))
	}))
	defer srv.Close()

	e := NewEdamam("app", "key", fastOptions(srv, "/v2")...)
	hits, err := e.Search(context.Background(), "apple")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %+v", hits)
	}
	if !hits[0].ReferenceData || hits[1].ReferenceData {
		t.Error("only generic foods are reference data")
	}
	if hits[1].Brand != "Bakery" || !hits[1].Branded() {
		t.Errorf("brand = %q", hits[1].Brand)
	}
	if hits[0].Nutrition.SugarG != nil || *hits[0].Nutrition.CarbsG != 13.81 {
		t.Errorf("nutrition = %+v", hits[0].Nutrition)
	}
}

func TestAPIClientRetries(t *testing.T) {
	tests := []struct {
		name      string
		responses []int
		wantCalls int32
		wantErr   string
	}{
		{"success after 5xx", []int{503, 200}, 2, ""},
		{"4xx not retried", []int{404}, 1, "client error: status code 404"},
		{"all 5xx", []int{500, 502, 503}, 3, "server error: status code 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				code := tt.responses[int(n)-1]
				w.WriteHeader(code)
				if code == http.StatusOK {
					w.Write([]byte(`{"foods":[]}`))
				}
			}))
			defer srv.Close()

			u := NewUSDA("key", fastOptions(srv, "")...)
			_, err := u.Search(context.Background(), "x")
			if tt.wantErr == "" && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestMalformedJSONFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"foods": "nope"`))
	}))
	defer srv.Close()

	u := NewUSDA("key", fastOptions(srv, "")...)
	if _, err := u.Search(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "malformed") {
		t.Errorf("error = %v", err)
	}
}
