package oracle

import (
	"fmt"
	"strings"
)

// Occupations counted as actor: actor, film actor, television actor, stage actor
var actorOccupations = []string{"Q33999", "Q10800557", "Q10798782", "Q948329"}

const (
	classFilm   = "Q11424"
	classSeries = "Q5398426"
)

func entityList(ids []string) string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, "wd:"+id)
	}
	return strings.Join(values, ", ")
}

func filmOrSeries(variable string) string {
	return fmt.Sprintf(`{ %[1]s wdt:P31/wdt:P279* wd:%[2]s . } UNION { %[1]s wdt:P31/wdt:P279* wd:%[3]s . }`, variable, classFilm, classSeries)
}

func labelService(language string) string {
	return fmt.Sprintf(`SERVICE wikibase:label { bd:serviceParam wikibase:language "%s". }`, language)
}

// IsActorQuery asks whether id has one of the actor occupations
func IsActorQuery(id string) string {
	return fmt.Sprintf(`ASK {
  wd:%s wdt:P106 ?occupation .
  FILTER(?occupation IN (%s))
}`, id, entityList(actorOccupations))
}

// ImageQuery selects one image of id
func ImageQuery(id string) string {
	return fmt.Sprintf(`SELECT ?image WHERE {
  wd:%s wdt:P18 ?image .
}
LIMIT 1`, id)
}

// PopularityQuery selects the sitelink counts of ids
func PopularityQuery(ids []string) string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, "wd:"+id)
	}
	return fmt.Sprintf(`SELECT ?item ?sitelinks WHERE {
  VALUES ?item { %s }
  ?item wikibase:sitelinks ?sitelinks .
}`, strings.Join(values, " "))
}

// ActorFilmsQuery selects the films and series id appears in
func ActorFilmsQuery(id string, language string) string {
	return fmt.Sprintf(`SELECT DISTINCT ?movie ?movieLabel ?poster WHERE {
  ?movie wdt:P161 wd:%s .
  %s
  OPTIONAL { ?movie wdt:P18 ?poster . }
  %s
}`, id, filmOrSeries("?movie"), labelService(language))
}

// FilmInfoQuery selects title and poster of one film
func FilmInfoQuery(id string, language string) string {
	return fmt.Sprintf(`SELECT ?movie ?movieLabel ?poster WHERE {
  BIND(wd:%s AS ?movie)
  OPTIONAL { ?movie wdt:P18 ?poster . }
  %s
}
LIMIT 1`, id, labelService(language))
}

// FilmCastQuery selects the actors of one film
func FilmCastQuery(id string, language string) string {
	return fmt.Sprintf(`SELECT DISTINCT ?actor ?actorLabel ?image WHERE {
  wd:%s wdt:P161 ?actor .
  ?actor wdt:P106 ?occupation .
  FILTER(?occupation IN (%s))
  OPTIONAL { ?actor wdt:P18 ?image . }
  %s
}`, id, entityList(actorOccupations), labelService(language))
}

// NeighborsQuery selects notable co-actors of id with a film linking them
func NeighborsQuery(id string, excluded []string, minSitelinks int, limit int, language string) string {
	exclude := ""
	if len(excluded) > 0 {
		exclude = fmt.Sprintf("FILTER(?coActor NOT IN (%s))", entityList(excluded))
	}
	return fmt.Sprintf(`SELECT DISTINCT ?coActor ?coActorLabel ?movie ?movieLabel ?image ?sitelinks WHERE {
  ?movie wdt:P161 wd:%[1]s .
  ?movie wdt:P161 ?coActor .
  ?coActor wdt:P106 ?occupation .
  FILTER(?occupation IN (%[2]s))
  FILTER(?coActor != wd:%[1]s)
  %[3]s
  ?coActor wikibase:sitelinks ?sitelinks .
  FILTER(?sitelinks > %[4]d)
  %[5]s
  OPTIONAL { ?coActor wdt:P18 ?image . }
  %[6]s
}
LIMIT %[7]d`, id, entityList(actorOccupations), exclude, minSitelinks, filmOrSeries("?movie"), labelService(language), limit)
}

// PopularActorsQuery selects notable actors that have an image
func PopularActorsQuery(minSitelinks int, limit int, language string) string {
	return fmt.Sprintf(`SELECT DISTINCT ?actor ?actorLabel ?image ?sitelinks WHERE {
  ?actor wdt:P106 wd:Q33999 .
  ?actor wdt:P18 ?image .
  ?actor wikibase:sitelinks ?sitelinks .
  FILTER(?sitelinks > %d)
  %s
}
LIMIT %d`, minSitelinks, labelService(language), limit)
}

// GraphQuery selects every pair of co-actors of the hubCount most notable actors with at least minFilms films
func GraphQuery(hubCount int, minFilms int, limit int, language string) string {
	return fmt.Sprintf(`SELECT DISTINCT ?actor1 ?actor1Label ?actor2 ?actor2Label ?movie ?movieLabel WHERE {
  {
    SELECT ?actor1 WHERE {
      ?actor1 wdt:P106 wd:Q33999 .
      ?actor1 wikibase:sitelinks ?sitelinks .
      {
        SELECT ?actor1 (COUNT(DISTINCT ?m) AS ?movieCount) WHERE {
          ?m wdt:P161 ?actor1 .
          ?m wdt:P31/wdt:P279* wd:%[1]s .
        }
        GROUP BY ?actor1
        HAVING (COUNT(DISTINCT ?m) >= %[2]d)
      }
    }
    ORDER BY DESC(?sitelinks)
    LIMIT %[3]d
  }
  ?movie wdt:P161 ?actor1 .
  ?movie wdt:P161 ?actor2 .
  ?movie wdt:P31/wdt:P279* wd:%[1]s .
  FILTER(?actor1 != ?actor2)
  %[4]s
}
LIMIT %[5]d`, classFilm, minFilms, hubCount, labelService(language), limit)
}
